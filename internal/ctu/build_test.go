package ctu

import (
	"testing"

	"ctucheck/internal/ctoken"
	"ctucheck/internal/diag"
	"ctucheck/internal/source"
	"ctucheck/internal/valueflow"
)

func sp(n uint32) source.Span { return source.Span{File: 1, Start: n, End: n + 1} }

func testFileSet(t *testing.T, path string) *source.FileSet {
	t.Helper()
	fs := source.NewFileSet()
	fs.AddVirtual("unused", make([]byte, 64))
	fs.AddVirtual(path, make([]byte, 64))
	return fs
}

func runFunc(t *testing.T, stream *ctoken.Stream, fn FuncRange) *valueflow.Result {
	t.Helper()
	return valueflow.NewEngine(stream, nil, valueflow.Options{WideningBound: 8, LoopBudget: 4, Inconclusive: true}).Run(fn.First, fn.End)
}

// buildUseFunction constructs:
//
//	void use(int *p) {
//	    *p;
//	}
func buildUseFunction(t *testing.T) (*ctoken.Stream, FuncRange) {
	t.Helper()
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	b.Push(ctoken.KwVoid, sp(0), "void", g)
	b.Push(ctoken.Ident, sp(1), "use", g)
	lparen := b.Push(ctoken.LParen, sp(2), "(", g)
	b.Push(ctoken.KwInt, sp(3), "int", g)
	b.Push(ctoken.Star, sp(4), "*", g)
	pDecl := b.Push(ctoken.Ident, sp(5), "p", g)
	rparen := b.Push(ctoken.RParen, sp(6), ")", g)
	b.Link(lparen, rparen)
	b.DeclareVariable(pDecl, ctoken.Variable{Name: "p", IsParam: true, ParamIndex: 0})

	fnScope := b.PushScope(ctoken.ScopeFunction, g, "use")
	open := b.Push(ctoken.LBrace, sp(7), "{", fnScope)

	derefStar := b.Push(ctoken.Star, sp(8), "*", fnScope)
	pUse := b.Push(ctoken.Ident, sp(9), "p", fnScope)
	b.Push(ctoken.Semicolon, sp(10), ";", fnScope)
	b.SetVariable(pUse, b.Stream().At(pDecl).Variable)
	b.SetAst(derefStar, pUse, ctoken.NoTokenID)

	closeTok := b.Push(ctoken.RBrace, sp(11), "}", g)
	b.Link(open, closeTok)

	stream := b.Finish()
	return stream, FuncRange{Name: "use", First: stream.Next(open), End: closeTok}
}

// buildCallerFunction constructs:
//
//	void main2() {
//	    int x;
//	    use(&x);
//	}
func buildCallerFunction(t *testing.T) (*ctoken.Stream, FuncRange) {
	t.Helper()
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	b.Push(ctoken.KwVoid, sp(0), "void", g)
	b.Push(ctoken.Ident, sp(1), "main2", g)
	lparen := b.Push(ctoken.LParen, sp(2), "(", g)
	rparen := b.Push(ctoken.RParen, sp(3), ")", g)
	b.Link(lparen, rparen)

	fnScope := b.PushScope(ctoken.ScopeFunction, g, "main2")
	open := b.Push(ctoken.LBrace, sp(4), "{", fnScope)

	b.Push(ctoken.KwInt, sp(5), "int", fnScope)
	x := b.Push(ctoken.Ident, sp(6), "x", fnScope)
	b.Push(ctoken.Semicolon, sp(7), ";", fnScope)
	b.DeclareVariable(x, ctoken.Variable{Name: "x"})

	useIdent := b.Push(ctoken.Ident, sp(8), "use", fnScope)
	callLParen := b.Push(ctoken.LParen, sp(9), "(", fnScope)
	amp := b.Push(ctoken.Amp, sp(10), "&", fnScope)
	xUse := b.Push(ctoken.Ident, sp(11), "x", fnScope)
	callRParen := b.Push(ctoken.RParen, sp(12), ")", fnScope)
	b.Link(callLParen, callRParen)
	b.Push(ctoken.Semicolon, sp(13), ";", fnScope)

	b.SetVariable(xUse, b.Stream().At(x).Variable)
	b.SetAst(amp, xUse, ctoken.NoTokenID)
	b.SetAst(callLParen, useIdent, amp)

	closeTok := b.Push(ctoken.RBrace, sp(14), "}", g)
	b.Link(open, closeTok)

	stream := b.Finish()
	return stream, FuncRange{Name: "main2", First: stream.Next(open), End: closeTok}
}

func TestBuildFileInfoFlagsUnguardedParamDeref(t *testing.T) {
	stream, fn := buildUseFunction(t)
	res := runFunc(t, stream, fn)
	info := BuildFileInfo("a.c", testFileSet(t, "a.c"), stream, res, []FuncRange{fn})

	if len(info.Functions) != 1 {
		t.Fatalf("expected one function summary, got %d", len(info.Functions))
	}
	usages := info.Functions[0].UnsafeUsages
	if len(usages) != 2 {
		t.Fatalf("expected 2 unsafe usages (null+uninit), got %d", len(usages))
	}
	var sawNull, sawUninit bool
	for _, u := range usages {
		if u.ParamName != "p" {
			t.Errorf("ParamName = %q, want p", u.ParamName)
		}
		switch {
		case u.CheckID == diag.CtuNullPointer && u.Invalid == InvalidNull:
			sawNull = true
		case u.CheckID == diag.CtuUninitVar && u.Invalid == InvalidUninit:
			sawUninit = true
		}
	}
	if !sawNull || !sawUninit {
		t.Fatalf("expected both null and uninit unsafe usage entries, got %+v", usages)
	}
}

func TestBuildFileInfoRecordsCallFactForUninitArgument(t *testing.T) {
	stream, fn := buildCallerFunction(t)
	res := runFunc(t, stream, fn)
	info := BuildFileInfo("b.c", testFileSet(t, "b.c"), stream, res, []FuncRange{fn})

	calls := info.Functions[0].FunctionCalls
	if len(calls) != 1 {
		t.Fatalf("expected one call fact, got %d", len(calls))
	}
	if calls[0].CalleeID != "use" {
		t.Fatalf("CalleeID = %q, want use", calls[0].CalleeID)
	}
	if calls[0].Value.Kind != CallUninit {
		t.Fatalf("Value.Kind = %v, want CallUninit", calls[0].Value.Kind)
	}
}
