package testkit

import (
	"testing"

	"ctucheck/internal/checks/nullpointer"
	"ctucheck/internal/checks/uninitvar"
	"ctucheck/internal/ctoken"
	"ctucheck/internal/ctu"
	"ctucheck/internal/diag"
	"ctucheck/internal/source"
	"ctucheck/internal/valueflow"
)

func sp(n uint32) source.Span { return source.Span{File: 1, Start: n, End: n + 1} }

// buildUninitFixture constructs: int x; int y = x;
func buildUninitFixture(t *testing.T) (*ctoken.Stream, ctoken.TokenID) {
	t.Helper()
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	b.Push(ctoken.KwInt, sp(0), "int", g)
	x := b.Push(ctoken.Ident, sp(1), "x", g)
	b.Push(ctoken.Semicolon, sp(2), ";", g)
	b.DeclareVariable(x, ctoken.Variable{Name: "x"})

	b.Push(ctoken.KwInt, sp(3), "int", g)
	y := b.Push(ctoken.Ident, sp(4), "y", g)
	assign := b.Push(ctoken.Assign, sp(5), "=", g)
	xUse := b.Push(ctoken.Ident, sp(6), "x", g)
	b.Push(ctoken.Semicolon, sp(7), ";", g)
	b.DeclareVariable(y, ctoken.Variable{Name: "y"})
	b.SetVariable(xUse, b.Stream().At(x).Variable)
	b.SetAst(assign, y, xUse)

	return b.Finish(), b.First()
}

// buildNullDerefFixture constructs: int *p = malloc(4); int q = *p;
func buildNullDerefFixture(t *testing.T) (*ctoken.Stream, ctoken.TokenID) {
	t.Helper()
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	b.Push(ctoken.KwInt, sp(0), "int", g)
	b.Push(ctoken.Star, sp(1), "*", g)
	p := b.Push(ctoken.Ident, sp(2), "p", g)
	assignP := b.Push(ctoken.Assign, sp(3), "=", g)
	callee := b.Push(ctoken.Ident, sp(4), "malloc", g)
	lparen := b.Push(ctoken.LParen, sp(5), "(", g)
	size := b.Push(ctoken.IntLit, sp(6), "4", g)
	rparen := b.Push(ctoken.RParen, sp(7), ")", g)
	b.Push(ctoken.Semicolon, sp(8), ";", g)
	b.DeclareVariable(p, ctoken.Variable{Name: "p"})
	b.Link(lparen, rparen)
	b.SetAst(lparen, callee, size)
	b.SetAst(assignP, p, lparen)

	b.Push(ctoken.KwInt, sp(9), "int", g)
	q := b.Push(ctoken.Ident, sp(10), "q", g)
	assignQ := b.Push(ctoken.Assign, sp(11), "=", g)
	deref := b.Push(ctoken.Star, sp(12), "*", g)
	pUse := b.Push(ctoken.Ident, sp(13), "p", g)
	b.Push(ctoken.Semicolon, sp(14), ";", g)
	b.DeclareVariable(q, ctoken.Variable{Name: "q"})
	b.SetVariable(pUse, b.Stream().At(p).Variable)
	b.SetAst(deref, pUse, ctoken.NoTokenID)
	b.SetAst(assignQ, q, deref)

	return b.Finish(), b.First()
}

func TestCheckUninitInvariantHolds(t *testing.T) {
	stream, first := buildUninitFixture(t)
	res := valueflow.NewEngine(stream, nil, valueflow.DefaultOptions()).Run(first, ctoken.NoTokenID)

	var got []diag.Diagnostic
	uninitvar.Run(stream, res, first, ctoken.NoTokenID, diag.ReporterFunc(func(d diag.Diagnostic) { got = append(got, d) }))
	if len(got) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(got))
	}
	if err := CheckUninitInvariant(stream, res, got[0]); err != nil {
		t.Errorf("uninit invariant failed: %v", err)
	}
}

func TestCheckNullDerefInvariantHolds(t *testing.T) {
	stream, first := buildNullDerefFixture(t)
	res := valueflow.NewEngine(stream, nil, valueflow.DefaultOptions()).Run(first, ctoken.NoTokenID)

	var got []diag.Diagnostic
	nullpointer.Run(stream, res, first, ctoken.NoTokenID, nil, diag.ReporterFunc(func(d diag.Diagnostic) { got = append(got, d) }))
	if len(got) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(got))
	}
	if err := CheckNullDerefInvariant(stream, res, got[0]); err != nil {
		t.Errorf("null-deref invariant failed: %v", err)
	}
}

func TestCheckWideningBoundHolds(t *testing.T) {
	stream, first := buildUninitFixture(t)
	res := valueflow.NewEngine(stream, nil, valueflow.Options{WideningBound: 8, LoopBudget: 4}).Run(first, ctoken.NoTokenID)
	if err := CheckWideningBound(res, 8); err != nil {
		t.Errorf("widening-bound invariant failed: %v", err)
	}
}

func TestCheckDeterministicDetectsMismatch(t *testing.T) {
	a := []byte("same")
	b := []byte("same")
	if err := CheckDeterministic(a, b); err != nil {
		t.Errorf("expected identical outputs to be equal, got %v", err)
	}
	if err := CheckDeterministic(a, []byte("diff")); err == nil {
		t.Error("expected mismatched outputs to be reported as different")
	}
}

func TestCheckCTURoundTrip(t *testing.T) {
	info := &ctu.FileInfo{
		Path: "a.c",
		Functions: []ctu.FunctionSummary{
			{
				FunctionID: "use",
				UnsafeUsages: []ctu.UnsafeUsage{
					{
						CheckID:   diag.CtuUninitVar,
						ArgIndex:  0,
						ParamName: "p",
						Invalid:   ctu.InvalidUninit,
						Location:  ctu.Location{File: "a.c", Line: 1, Column: 10},
					},
				},
			},
		},
	}
	if err := CheckCTURoundTrip(info, nil, 2, 64); err != nil {
		t.Errorf("CTU round-trip invariant failed: %v", err)
	}
}
