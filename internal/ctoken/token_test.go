package ctoken

import (
	"testing"

	"ctucheck/internal/source"
)

func span(n uint32) source.Span { return source.Span{File: 1, Start: n, End: n + 1} }

// buildIntDecl builds: int x ;   ->  KwInt Ident(x) Semicolon
func buildIntDecl(t *testing.T) (*Builder, TokenID) {
	t.Helper()
	b := NewBuilder()
	global := b.Stream().Scopes.Global()

	intType := b.AddType(Type{Kind: TypeInt, SizeBytes: 4})

	b.Push(KwInt, span(0), "int", global)
	x := b.Push(Ident, span(1), "x", global)
	b.Push(Semicolon, span(2), ";", global)

	b.SetType(x, intType)
	b.DeclareVariable(x, Variable{Name: "x", Type: intType, Storage: StorageAuto})

	return b, x
}

func TestStreamWalkVisitsAllInOrder(t *testing.T) {
	b, _ := buildIntDecl(t)
	s := b.Finish()

	var texts []string
	s.Walk(b.First(), func(id TokenID) {
		texts = append(texts, s.Str(id))
	})

	want := []string{"int", "x", ";"}
	if len(texts) != len(want) {
		t.Fatalf("got %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("position %d: got %q want %q", i, texts[i], want[i])
		}
	}
}

func TestVariableIdentityStable(t *testing.T) {
	b, x := buildIntDecl(t)
	s := b.Finish()

	// A second reference to x, as if resolved by the same declaration.
	ref := b.Push(Ident, span(10), "x", s.Scopes.Global())
	b.SetVariable(ref, s.At(x).Variable)

	v1 := s.VariableOf(x)
	v2 := s.VariableOf(ref)
	if v1.ID != v2.ID || v1.ID == NoVariableID {
		t.Fatalf("expected same Variable identity, got %d and %d", v1.ID, v2.ID)
	}
}

func TestAstRootAndOperands(t *testing.T) {
	b := NewBuilder()
	global := b.Stream().Scopes.Global()
	// y = x
	y := b.Push(Ident, span(0), "y", global)
	eq := b.Push(Assign, span(1), "=", global)
	x := b.Push(Ident, span(2), "x", global)
	b.SetAst(eq, y, x)

	s := b.Finish()
	if !s.IsAstRoot(eq) {
		t.Fatalf("expected assign token to be AST root")
	}
	if s.IsAstRoot(y) || s.IsAstRoot(x) {
		t.Fatalf("operands must not be AST roots")
	}
	if s.AstOperand1Of(eq) != y || s.AstOperand2Of(eq) != x {
		t.Fatalf("operands wired incorrectly")
	}
	if s.AstParentOf(y) != eq || s.AstParentOf(x) != eq {
		t.Fatalf("operand parent not wired back to operator")
	}
}

func TestLinkMatchesBothWays(t *testing.T) {
	b := NewBuilder()
	global := b.Stream().Scopes.Global()
	open := b.Push(LParen, span(0), "(", global)
	close_ := b.Push(RParen, span(1), ")", global)
	b.Link(open, close_)

	s := b.Finish()
	if s.LinkOf(open) != close_ || s.LinkOf(close_) != open {
		t.Fatalf("expected bracket link to resolve both ways")
	}
}

func TestUnresolvedTokenFallsBackToZeroValue(t *testing.T) {
	s := NewStream()
	if got := s.At(NoTokenID); got.Kind != Invalid {
		t.Fatalf("expected zero Token for NoTokenID, got %+v", got)
	}
	if v := s.VariableOf(NoTokenID); v.ID != NoVariableID {
		t.Fatalf("expected unresolved variable, got %+v", v)
	}
}
