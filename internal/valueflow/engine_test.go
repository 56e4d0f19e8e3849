package valueflow

import (
	"testing"

	"ctucheck/internal/ctoken"
	"ctucheck/internal/source"
	"ctucheck/internal/vflattice"
)

func sp(n uint32) source.Span { return source.Span{File: 1, Start: n, End: n + 1} }

func TestUninitVariableReadIsFlagged(t *testing.T) {
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

	stream := b.Finish()
	res := NewEngine(stream, nil, DefaultOptions()).Run(b.First(), ctoken.NoTokenID)

	if !res.Contains(xUse, vflattice.Uninit) {
		t.Fatalf("expected reading uninitialized x to carry Uninit in its value set")
	}
}

func TestInitializedVariableReadIsNotUninit(t *testing.T) {
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	b.Push(ctoken.KwInt, sp(0), "int", g)
	x := b.Push(ctoken.Ident, sp(1), "x", g)
	assignX := b.Push(ctoken.Assign, sp(2), "=", g)
	zero := b.Push(ctoken.IntLit, sp(3), "0", g)
	b.Push(ctoken.Semicolon, sp(4), ";", g)
	b.DeclareVariable(x, ctoken.Variable{Name: "x"})
	b.SetAst(assignX, x, zero)

	b.Push(ctoken.KwInt, sp(5), "int", g)
	y := b.Push(ctoken.Ident, sp(6), "y", g)
	assignY := b.Push(ctoken.Assign, sp(7), "=", g)
	xUse := b.Push(ctoken.Ident, sp(8), "x", g)
	b.Push(ctoken.Semicolon, sp(9), ";", g)
	b.DeclareVariable(y, ctoken.Variable{Name: "y"})
	b.SetVariable(xUse, b.Stream().At(x).Variable)
	b.SetAst(assignY, y, xUse)

	stream := b.Finish()
	res := NewEngine(stream, nil, DefaultOptions()).Run(b.First(), ctoken.NoTokenID)

	if res.Contains(xUse, vflattice.Uninit) {
		t.Fatalf("did not expect Uninit after x was initialized to 0")
	}
}

// buildMallocGuarded builds:
//
//	int *p = malloc(4);
//	if (p) {
//	    int q = p;
//	}
func buildMallocGuarded(t *testing.T) (*ctoken.Builder, ctoken.TokenID) {
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

	ifTok := b.Push(ctoken.KwIf, sp(9), "if", g)
	ifOpen := b.Push(ctoken.LParen, sp(10), "(", g)
	cond := b.Push(ctoken.Ident, sp(11), "p", g)
	ifClose := b.Push(ctoken.RParen, sp(12), ")", g)
	thenOpen := b.Push(ctoken.LBrace, sp(13), "{", g)

	b.Push(ctoken.KwInt, sp(14), "int", g)
	q := b.Push(ctoken.Ident, sp(15), "q", g)
	assignQ := b.Push(ctoken.Assign, sp(16), "=", g)
	pUse := b.Push(ctoken.Ident, sp(17), "p", g)
	b.Push(ctoken.Semicolon, sp(18), ";", g)
	b.DeclareVariable(q, ctoken.Variable{Name: "q"})

	thenClose := b.Push(ctoken.RBrace, sp(19), "}", g)

	b.Link(ifOpen, ifClose)
	b.Link(thenOpen, thenClose)
	b.SetAst(ifTok, cond, ctoken.NoTokenID)
	b.SetVariable(cond, b.Stream().At(p).Variable)
	b.SetVariable(pUse, b.Stream().At(p).Variable)
	b.SetAst(assignQ, q, pUse)

	return b, pUse
}

// buildBarePointerParam builds: void f(int *p) { *p = 0; if (p) { } }
// (p itself is, per the builder convention elsewhere in this repo, declared
// under the enclosing scope rather than the function's own scope).
func buildBarePointerParam(t *testing.T) (*ctoken.Stream, ctoken.TokenID, ctoken.TokenID, ctoken.TokenID) {
	t.Helper()
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	intTy := b.AddType(ctoken.Type{Kind: ctoken.TypeInt, SizeBytes: 4})
	ptrTy := b.AddType(ctoken.Type{Kind: ctoken.TypePointer, Inner: intTy})

	b.Push(ctoken.KwVoid, sp(0), "void", g)
	b.Push(ctoken.Ident, sp(1), "f", g)
	lparen := b.Push(ctoken.LParen, sp(2), "(", g)
	b.Push(ctoken.KwInt, sp(3), "int", g)
	b.Push(ctoken.Star, sp(4), "*", g)
	pDecl := b.Push(ctoken.Ident, sp(5), "p", g)
	b.SetType(pDecl, ptrTy)
	rparen := b.Push(ctoken.RParen, sp(6), ")", g)
	b.Link(lparen, rparen)
	pID := b.DeclareVariable(pDecl, ctoken.Variable{Name: "p", Type: ptrTy, IsParam: true, ParamIndex: 0})

	fnScope := b.PushScope(ctoken.ScopeFunction, g, "f")
	open := b.Push(ctoken.LBrace, sp(7), "{", fnScope)

	star := b.Push(ctoken.Star, sp(8), "*", fnScope)
	pWrite := b.Push(ctoken.Ident, sp(9), "p", fnScope)
	b.SetType(pWrite, ptrTy)
	b.SetVariable(pWrite, pID)
	b.SetAst(star, pWrite, ctoken.NoTokenID)
	assign := b.Push(ctoken.Assign, sp(10), "=", fnScope)
	zero := b.Push(ctoken.IntLit, sp(11), "0", fnScope)
	b.Push(ctoken.Semicolon, sp(12), ";", fnScope)
	b.SetAst(assign, star, zero)

	ifTok := b.Push(ctoken.KwIf, sp(13), "if", fnScope)
	ifOpen := b.Push(ctoken.LParen, sp(14), "(", fnScope)
	cond := b.Push(ctoken.Ident, sp(15), "p", fnScope)
	b.SetType(cond, ptrTy)
	b.SetVariable(cond, pID)
	ifClose := b.Push(ctoken.RParen, sp(16), ")", fnScope)
	thenOpen := b.Push(ctoken.LBrace, sp(17), "{", fnScope)
	thenClose := b.Push(ctoken.RBrace, sp(18), "}", fnScope)
	b.Link(ifOpen, ifClose)
	b.Link(thenOpen, thenClose)
	b.SetAst(ifTok, cond, ctoken.NoTokenID)

	closeTok := b.Push(ctoken.RBrace, sp(19), "}", g)
	b.Link(open, closeTok)

	return b.Finish(), open, closeTok, pWrite
}

func TestRunFunctionSeedsPointerParamWithNull(t *testing.T) {
	stream, open, closeTok, pWrite := buildBarePointerParam(t)
	res := NewEngine(stream, nil, DefaultOptions()).RunFunction(stream.Next(open), closeTok)

	if !res.Contains(pWrite, vflattice.Null) {
		t.Fatalf("expected the bare pointer parameter to carry Null after RunFunction seeding")
	}
}

func TestRunWithoutSeedingLeavesParamTop(t *testing.T) {
	stream, open, closeTok, pWrite := buildBarePointerParam(t)
	res := NewEngine(stream, nil, DefaultOptions()).Run(stream.Next(open), closeTok)

	if !res.At(pWrite).IsTop() {
		t.Fatalf("expected Run (unseeded) to leave the parameter exactly Top, got %+v", res.At(pWrite))
	}
}

// buildStructMemberFixture builds:
//
//	struct S ab;
//	ab.a = 0;
//	return ab.b;
//
// ab's two leaf members are independent VariableIDs (rule: each member of an
// aggregate tracks its own Uninit status), so writing .a must not clear .b.
func buildStructMemberFixture(t *testing.T) (*ctoken.Stream, ctoken.TokenID, ctoken.TokenID) {
	t.Helper()
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	b.Push(ctoken.KwStruct, sp(0), "struct S", g)
	abDecl := b.Push(ctoken.Ident, sp(1), "ab", g)
	b.Push(ctoken.Semicolon, sp(2), ";", g)
	abID := b.DeclareVariable(abDecl, ctoken.Variable{Name: "ab"})

	aID := b.Stream().Vars.Declare(ctoken.Variable{Name: "a"})
	bID := b.Stream().Vars.Declare(ctoken.Variable{Name: "b"})
	b.Stream().Vars.SetMembers(abID, []ctoken.VariableID{aID, bID})

	abUse1 := b.Push(ctoken.Ident, sp(3), "ab", g)
	dotA := b.Push(ctoken.Dot, sp(4), ".", g)
	aMember := b.Push(ctoken.Ident, sp(5), "a", g)
	assign := b.Push(ctoken.Assign, sp(6), "=", g)
	zero := b.Push(ctoken.IntLit, sp(7), "0", g)
	b.Push(ctoken.Semicolon, sp(8), ";", g)
	b.SetVariable(abUse1, abID)
	b.SetVariable(aMember, aID)
	b.SetAst(dotA, abUse1, aMember)
	b.SetAst(assign, dotA, zero)

	retTok := b.Push(ctoken.KwReturn, sp(9), "return", g)
	abUse2 := b.Push(ctoken.Ident, sp(10), "ab", g)
	dotB := b.Push(ctoken.Dot, sp(11), ".", g)
	bMember := b.Push(ctoken.Ident, sp(12), "b", g)
	b.Push(ctoken.Semicolon, sp(13), ";", g)
	b.SetVariable(abUse2, abID)
	b.SetVariable(bMember, bID)
	b.SetAst(dotB, abUse2, bMember)
	b.SetAst(retTok, dotB, ctoken.NoTokenID)

	return b.Finish(), b.First(), bMember
}

func TestStructMemberWriteDoesNotClearSiblingUninit(t *testing.T) {
	stream, first, bMember := buildStructMemberFixture(t)
	res := NewEngine(stream, nil, DefaultOptions()).Run(first, ctoken.NoTokenID)

	if !res.Contains(bMember, vflattice.Uninit) {
		t.Fatalf("expected ab.b to remain Uninit after only ab.a was written")
	}
}

// buildHeapUninitFixture builds: char *s = malloc(64); int c = s[0];
func buildHeapUninitFixture(t *testing.T) (*ctoken.Stream, ctoken.TokenID, ctoken.TokenID) {
	t.Helper()
	b := ctoken.NewBuilder()
	g := b.Stream().Scopes.Global()

	b.Push(ctoken.KwChar, sp(0), "char", g)
	b.Push(ctoken.Star, sp(1), "*", g)
	s := b.Push(ctoken.Ident, sp(2), "s", g)
	assignS := b.Push(ctoken.Assign, sp(3), "=", g)
	callee := b.Push(ctoken.Ident, sp(4), "malloc", g)
	lparen := b.Push(ctoken.LParen, sp(5), "(", g)
	size := b.Push(ctoken.IntLit, sp(6), "64", g)
	rparen := b.Push(ctoken.RParen, sp(7), ")", g)
	b.Push(ctoken.Semicolon, sp(8), ";", g)
	sID := b.DeclareVariable(s, ctoken.Variable{Name: "s"})
	b.Link(lparen, rparen)
	b.SetAst(lparen, callee, size)
	b.SetAst(assignS, s, lparen)

	b.Push(ctoken.KwInt, sp(9), "int", g)
	c := b.Push(ctoken.Ident, sp(10), "c", g)
	assignC := b.Push(ctoken.Assign, sp(11), "=", g)
	index := b.Push(ctoken.LBracket, sp(12), "[", g)
	sUse := b.Push(ctoken.Ident, sp(13), "s", g)
	zero := b.Push(ctoken.IntLit, sp(14), "0", g)
	b.Push(ctoken.Semicolon, sp(15), ";", g)
	b.DeclareVariable(c, ctoken.Variable{Name: "c"})
	b.SetVariable(sUse, sID)
	b.SetAst(index, sUse, zero)
	b.SetAst(assignC, c, index)

	return b.Finish(), b.First(), index
}

func TestMallocPointeeReadIsUninitData(t *testing.T) {
	stream, first, index := buildHeapUninitFixture(t)
	res := NewEngine(stream, nil, DefaultOptions()).Run(first, ctoken.NoTokenID)

	if !res.Contains(index, vflattice.Uninit) {
		t.Fatalf("expected s[0] to carry Uninit: malloc's pointee is never written before this read")
	}
}

func TestNullGuardRefinesThenBranch(t *testing.T) {
	b, pUse := buildMallocGuarded(t)
	stream := b.Finish()
	res := NewEngine(stream, nil, DefaultOptions()).Run(b.First(), ctoken.NoTokenID)

	if res.Contains(pUse, vflattice.Null) {
		t.Fatalf("expected p to be refined to non-null inside the guarded branch")
	}
	if !res.Contains(pUse, vflattice.NonNull) {
		t.Fatalf("expected p to carry NonNull inside the guarded branch")
	}
}
