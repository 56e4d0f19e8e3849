package ctoken

import (
	"fmt"

	"fortio.org/safecast"
	"ctucheck/internal/source"
)

// TokenID indexes a token within a Stream's arena. Zero is reserved as "no
// token" so IDs are usable directly as map keys and zero values are safe.
type TokenID uint32

// NoTokenID marks the absence of a token (e.g. an unlinked bracket, a
// variable reference with no address-taken use).
const NoTokenID TokenID = 0

// Token is one lexical unit, frozen once the Stream that owns it is built.
type Token struct {
	Kind Kind
	Span source.Span
	Text string

	Next, Prev TokenID // lexical order, 0 at the ends
	Link       TokenID // matching bracket or if/else partner, 0 if none

	AstParent   TokenID
	AstOperand1 TokenID
	AstOperand2 TokenID

	Variable VariableID // resolved identifier, NoVariableID if unresolved
	Type     TypeID     // resolved type, NoTypeID if unresolved
	Scope    ScopeID
}

// Stream is an immutable-after-construction token sequence for one
// translation unit. All navigation is O(1) arena indexing.
type Stream struct {
	tokens []Token // index 0 reserved as NoTokenID
	Types  *TypeTable
	Vars   *VariableTable
	Scopes *ScopeTable
}

// NewStream creates an empty, writable stream. Use Builder to populate it,
// then treat the result as read-only.
func NewStream() *Stream {
	return &Stream{
		tokens: make([]Token, 1, 256),
		Types:  NewTypeTable(),
		Vars:   NewVariableTable(),
		Scopes: NewScopeTable(),
	}
}

// Append adds a token to the end of the arena and returns its TokenID. It
// does not link Next/Prev; callers (normally Builder) do that explicitly so
// out-of-order construction (e.g. backpatching Link) stays possible.
func (s *Stream) Append(t Token) TokenID {
	n, err := safecast.Conv[uint32](len(s.tokens))
	if err != nil {
		panic(fmt.Errorf("ctoken: token arena overflow: %w", err))
	}
	s.tokens = append(s.tokens, t)
	return TokenID(n)
}

// Len returns the number of tokens, excluding the reserved zero slot.
func (s *Stream) Len() int { return len(s.tokens) - 1 }

// At returns a copy of the token at id. Returns the zero Token for NoTokenID
// or an out-of-range id: failures of resolution are reported as none, and
// the engine must accept them.
func (s *Stream) At(id TokenID) Token {
	if id == NoTokenID || int(id) >= len(s.tokens) {
		return Token{}
	}
	return s.tokens[id]
}

// Set overwrites the token at id. Used only during construction (Builder) —
// nothing in internal/valueflow or the checks calls this.
func (s *Stream) Set(id TokenID, t Token) {
	if id == NoTokenID || int(id) >= len(s.tokens) {
		return
	}
	s.tokens[id] = t
}

// Str returns the literal text of id's token.
func (s *Stream) Str(id TokenID) string { return s.At(id).Text }

// Next returns the next token in lexical order, or NoTokenID at the end.
func (s *Stream) Next(id TokenID) TokenID { return s.At(id).Next }

// Previous returns the previous token in lexical order, or NoTokenID at the start.
func (s *Stream) Previous(id TokenID) TokenID { return s.At(id).Prev }

// VariableOf resolves id's identifier to a Variable, or the zero Variable.
func (s *Stream) VariableOf(id TokenID) Variable { return s.Vars.Get(s.At(id).Variable) }

// TypeOf resolves id's token to a Type, or the zero Type if unresolved.
func (s *Stream) TypeOf(id TokenID) Type { return s.Types.Get(s.At(id).Type) }

// ScopeOf returns the lexical scope enclosing id's token.
func (s *Stream) ScopeOf(id TokenID) Scope { return s.Scopes.Get(s.At(id).Scope) }

// LinkOf returns id's matching bracket/if-else partner, or NoTokenID.
func (s *Stream) LinkOf(id TokenID) TokenID { return s.At(id).Link }

// AstParentOf returns the AST parent of id's token, or NoTokenID at a root.
func (s *Stream) AstParentOf(id TokenID) TokenID { return s.At(id).AstParent }

// AstOperand1Of returns the first AST child (e.g. LHS of a binary op, or the
// sole operand of a unary op).
func (s *Stream) AstOperand1Of(id TokenID) TokenID { return s.At(id).AstOperand1 }

// AstOperand2Of returns the second AST child (e.g. RHS of a binary op).
func (s *Stream) AstOperand2Of(id TokenID) TokenID { return s.At(id).AstOperand2 }

// IsAstRoot reports whether id's token has no AST parent but does have at
// least one operand — i.e. it is the top operator of an expression tree
//.
func (s *Stream) IsAstRoot(id TokenID) bool {
	t := s.At(id)
	return t.AstParent == NoTokenID && (t.AstOperand1 != NoTokenID || t.AstOperand2 != NoTokenID)
}

// Walk visits every token from the first to the last in source order,
// calling fn(id). Walking Next from the first token reaches every token in
// source order.
func (s *Stream) Walk(first TokenID, fn func(TokenID)) {
	for id := first; id != NoTokenID; id = s.Next(id) {
		fn(id)
	}
}
