package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"ctucheck/internal/diag"
	"ctucheck/internal/source"
)

func TestPrettyPathModes(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/home/user/project")
	content := []byte("int x;\n*p = 1;\n")
	fileID := fs.AddVirtual("/home/user/project/src/test.c", content)

	bag := diag.NewBag(10)
	d := diag.New(diag.SevError, diag.NullPointer, source.Span{File: fileID, Start: 7, End: 9}, "null pointer dereference")
	bag.Add(&d)

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/test.c"},
		{"relative", PathModeRelative, "src/test.c"},
		{"basename", PathModeBasename, "test.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{Color: false, Context: 1, PathMode: tt.mode})
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Errorf("expected output to contain %q, got:\n%s", tt.contains, out)
			}
			if !strings.Contains(out, "error") {
				t.Error("expected error severity in output")
			}
			if !strings.Contains(out, "null pointer dereference") {
				t.Error("expected message in output")
			}
		})
	}
}

func TestPrettyRendersCallStack(t *testing.T) {
	fs := source.NewFileSet()
	calleeID := fs.AddVirtual("callee.c", []byte("void use(int *p) { *p; }\n"))
	callerID := fs.AddVirtual("caller.c", []byte("void main2() { int x; use(&x); }\n"))

	bag := diag.NewBag(10)
	d := diag.New(diag.SevWarning, diag.CtuUninitVar, source.Span{File: calleeID, Start: 20, End: 21}, "uninitialized variable passed across translation units").
		WithCallStack(diag.Location{Span: source.Span{File: callerID, Start: 27, End: 29}, Hint: "called from here"})
	bag.Add(&d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: false, Context: 1, ShowCallStack: true})
	out := buf.String()

	if !strings.Contains(out, "stack") {
		t.Error("expected a stack hop in output")
	}
	if !strings.Contains(out, "caller.c") {
		t.Error("expected the call-stack hop's file in output")
	}
	if !strings.Contains(out, "called from here") {
		t.Error("expected the call-stack hop's hint in output")
	}
}

func TestPrettyOmitsCallStackWhenDisabled(t *testing.T) {
	fs := source.NewFileSet()
	calleeID := fs.AddVirtual("callee.c", []byte("void use(int *p) { *p; }\n"))
	callerID := fs.AddVirtual("caller.c", []byte("void main2() { int x; use(&x); }\n"))

	bag := diag.NewBag(10)
	d := diag.New(diag.SevWarning, diag.CtuUninitVar, source.Span{File: calleeID, Start: 20, End: 21}, "uninitialized variable").
		WithCallStack(diag.Location{Span: source.Span{File: callerID, Start: 27, End: 29}, Hint: "called from here"})
	bag.Add(&d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: false, Context: 1, ShowCallStack: false})
	out := buf.String()

	if strings.Contains(out, "called from here") {
		t.Error("did not expect call-stack hint when ShowCallStack is false")
	}
}
