package diag

import (
	"reflect"
	"testing"

	"ctucheck/internal/source"
)

func TestEscapeControlRoundTrip(t *testing.T) {
	in := "line one\x01\x1f end\x7fdone"
	escaped := EscapeControl(in)
	if escaped == in {
		t.Fatalf("expected control characters to be escaped")
	}
	if got := UnescapeControl(escaped); got != in {
		t.Fatalf("round trip mismatch: got %q want %q", got, in)
	}
}

func TestWireRecordRoundTrip(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/workspace")
	f := fs.Add("/workspace/src/main.c", []byte("int x;\nint y = x;\n"), 0)
	caller := fs.Add("/workspace/src/caller.c", []byte("foo();\n"), 0)

	d := Diagnostic{
		Severity:  SevError,
		Code:      UninitVar,
		Certainty: CertaintyInconclusive,
		Message:   "uninitialized variable: x",
		Verbose:   "variable 'x' is read before being assigned a value",
		Primary:   source.Span{File: f, Start: 11, End: 12},
	}
	d = d.WithCallStackHop(source.Span{File: caller, Start: 0, End: 3}, "called from here")

	rec := NewWireRecord(d, fs, []string{"x"})
	wire := Encode(rec)

	got, err := Decode(wire)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", rec, got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	rec := WireRecord{ID: "uninit1001", ShortMessage: "x"}
	wire := Encode(rec)
	if _, err := Decode(wire[:len(wire)-1]); err == nil {
		t.Fatalf("expected error decoding truncated wire record")
	}
}
