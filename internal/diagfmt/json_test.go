package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"ctucheck/internal/diag"
	"ctucheck/internal/source"
)

func TestJSONBuildsLocationsAndCodes(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.c", []byte("int x;\n*p = 1;\n"))

	bag := diag.NewBag(10)
	d := diag.New(diag.SevError, diag.NullPointer, source.Span{File: fileID, Start: 7, End: 9}, "null pointer dereference")
	bag.Add(&d)

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludePositions: true})
	if out.Count != 1 {
		t.Fatalf("Count = %d, want 1", out.Count)
	}
	got := out.Diagnostics[0]
	if got.Code != diag.NullPointer.ID() {
		t.Errorf("Code = %q, want %q", got.Code, diag.NullPointer.ID())
	}
	if got.CWE != 476 {
		t.Errorf("CWE = %d, want 476", got.CWE)
	}
	if got.Location.File != "test.c" {
		t.Errorf("Location.File = %q, want test.c", got.Location.File)
	}
	if got.Location.StartLine == 0 {
		t.Error("expected StartLine to be populated when IncludePositions is set")
	}
}

func TestJSONIncludesCallStackOnlyWhenRequested(t *testing.T) {
	fs := source.NewFileSet()
	calleeID := fs.AddVirtual("callee.c", []byte("void use(int *p) { *p; }\n"))
	callerID := fs.AddVirtual("caller.c", []byte("void main2() { int x; use(&x); }\n"))

	bag := diag.NewBag(10)
	d := diag.New(diag.SevWarning, diag.CtuUninitVar, source.Span{File: calleeID, Start: 20, End: 21}, "uninitialized variable passed across translation units").
		WithCallStack(diag.Location{Span: source.Span{File: callerID, Start: 27, End: 29}, Hint: "called from here"})
	bag.Add(&d)

	without := BuildDiagnosticsOutput(bag, fs, JSONOpts{})
	if len(without.Diagnostics[0].CallStack) != 0 {
		t.Error("expected no call stack when IncludeCallStack is false")
	}

	with := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludeCallStack: true})
	hops := with.Diagnostics[0].CallStack
	if len(hops) != 1 {
		t.Fatalf("expected 1 call-stack hop, got %d", len(hops))
	}
	if hops[0].Hint != "called from here" {
		t.Errorf("Hint = %q, want %q", hops[0].Hint, "called from here")
	}
}

func TestJSONRespectsMaxTruncation(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.c", []byte("int x;\nint y;\nint z;\n"))

	bag := diag.NewBag(10)
	for i := 0; i < 3; i++ {
		d := diag.New(diag.SevError, diag.NullPointer, source.Span{File: fileID, Start: 0, End: 1}, "dereference")
		bag.Add(&d)
	}

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 2})
	if out.Count != 2 {
		t.Fatalf("Count = %d, want 2", out.Count)
	}
}

func TestJSONEncodesValidJSON(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.c", []byte("int x;\n"))
	bag := diag.NewBag(10)
	d := diag.New(diag.SevError, diag.UninitVar, source.Span{File: fileID, Start: 0, End: 1}, "uninitialized read")
	bag.Add(&d)

	var buf bytes.Buffer
	if err := JSON(&buf, bag, fs, JSONOpts{}); err != nil {
		t.Fatalf("JSON returned error: %v", err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("Count = %d, want 1", out.Count)
	}
}
