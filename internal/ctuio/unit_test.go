package ctuio

import (
	"strings"
	"testing"

	"ctucheck/internal/ctoken"
	"ctucheck/internal/source"
)

// intDeclUnit builds: int x ; x = 1 ;  as a ctuio.Unit, mirroring
// ctoken's own buildIntDecl test fixture but expressed as wire JSON.
func intDeclUnit() *Unit {
	return &Unit{
		Path:   "t.c",
		Source: "int x;x=1;",
		Types: []Type{
			{Kind: "int", SizeBytes: 4},
		},
		Variables: []Variable{
			{Name: "x", Type: 1, Storage: "auto", DeclToken: 2},
		},
		Tokens: []Token{
			{Kind: "int", Text: "int", Start: 0, End: 3},
			{Kind: "ident", Text: "x", Start: 3, End: 4, Variable: 1, Type: 1},
			{Kind: ";", Text: ";", Start: 4, End: 5},
			{Kind: "ident", Text: "x", Start: 5, End: 6, Variable: 1, Type: 1},
			{Kind: "=", Text: "=", Start: 6, End: 7},
			{Kind: "intlit", Text: "1", Start: 7, End: 8},
			{Kind: ";", Text: ";", Start: 8, End: 9},
		},
		Ast: []AstEdge{
			{Op: 5, Operand1: 4, Operand2: 6}, // = assigns operand2(1) to operand1(x)
		},
	}
}

func TestBuildProducesExpectedStream(t *testing.T) {
	fs := source.NewFileSet()
	stream, first, err := Build(intDeclUnit(), fs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stream.Len() != 7 {
		t.Fatalf("got %d tokens, want 7", stream.Len())
	}

	var texts []string
	stream.Walk(first, func(id ctoken.TokenID) {
		texts = append(texts, stream.Str(id))
	})
	want := []string{"int", "x", ";", "x", "=", "1", ";"}
	if strings.Join(texts, " ") != strings.Join(want, " ") {
		t.Fatalf("got %v, want %v", texts, want)
	}

	x1 := ctoken.TokenID(2)
	x2 := ctoken.TokenID(4)
	v1 := stream.VariableOf(x1)
	v2 := stream.VariableOf(x2)
	if v1.ID == ctoken.NoVariableID || v1.ID != v2.ID {
		t.Fatalf("expected both occurrences of x to resolve to the same variable, got %d and %d", v1.ID, v2.ID)
	}
	if v1.Name != "x" || stream.TypeOf(x1).Kind != ctoken.TypeInt {
		t.Fatalf("unexpected variable/type: %+v / %+v", v1, stream.TypeOf(x1))
	}

	assignTok := ctoken.TokenID(5)
	if stream.AstOperand1Of(assignTok) != x2 || stream.AstOperand2Of(assignTok) != ctoken.TokenID(6) {
		t.Fatalf("assignment AST edge not wired as expected")
	}
}

func TestBuildRejectsOutOfRangeReference(t *testing.T) {
	u := intDeclUnit()
	u.Tokens[1].Variable = 99 // no such variable
	if _, _, err := Build(u, source.NewFileSet()); err == nil {
		t.Fatalf("expected an out-of-range variable reference to be rejected")
	}
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	u := intDeclUnit()
	u.Tokens[0].Kind = "bogus"
	if _, _, err := Build(u, source.NewFileSet()); err == nil {
		t.Fatalf("expected an unknown token kind to be rejected")
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	r := strings.NewReader(`{"path":"t.c","source":"","tokens":[],"bogus":true}`)
	if _, err := Decode(r); err == nil {
		t.Fatalf("expected decode to reject an unknown field")
	}
}

func TestScopeNesting(t *testing.T) {
	u := &Unit{
		Path:   "f.c",
		Source: "int f(){int y;}",
		Scopes: []Scope{
			{Kind: "function", Parent: 0, FuncName: "f"},
			{Kind: "block", Parent: 1},
		},
		Types: []Type{{Kind: "int", SizeBytes: 4}},
		Variables: []Variable{
			{Name: "y", Type: 1, Storage: "auto", DeclToken: 1},
		},
		Tokens: []Token{
			{Kind: "ident", Text: "y", Start: 12, End: 13, Scope: 2, Variable: 1, Type: 1},
		},
	}
	stream, first, err := Build(u, source.NewFileSet())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sc := stream.ScopeOf(first)
	if sc.Kind != ctoken.ScopeBlock {
		t.Fatalf("got scope kind %v, want ScopeBlock", sc.Kind)
	}
	if fn := stream.Scopes.EnclosingFunction(sc.ID); fn != "f" {
		t.Fatalf("got enclosing function %q, want f", fn)
	}
}
