package ctoken

import "ctucheck/internal/source"

// Builder constructs a Stream token by token, then links Next/Prev. It is
// the single place that mutates a Stream; once Finish returns, callers treat
// the Stream as read-only — its topology is frozen before the engine runs.
type Builder struct {
	stream *Stream
	last   TokenID
	first  TokenID
}

// NewBuilder creates a Builder over a fresh Stream.
func NewBuilder() *Builder {
	return &Builder{stream: NewStream()}
}

// Stream returns the Stream under construction.
func (b *Builder) Stream() *Stream { return b.stream }

// Push appends a token, linking it after the previously pushed token, and
// returns its TokenID.
func (b *Builder) Push(kind Kind, span source.Span, text string, scope ScopeID) TokenID {
	id := b.stream.Append(Token{Kind: kind, Span: span, Text: text, Scope: scope})
	if b.last != NoTokenID {
		prev := b.stream.At(b.last)
		prev.Next = id
		b.stream.Set(b.last, prev)

		cur := b.stream.At(id)
		cur.Prev = b.last
		b.stream.Set(id, cur)
	} else {
		b.first = id
	}
	b.last = id
	return id
}

// First returns the first pushed token, or NoTokenID if nothing was pushed.
func (b *Builder) First() TokenID { return b.first }

// Last returns the most recently pushed token.
func (b *Builder) Last() TokenID { return b.last }

// Link records a matching pair (e.g. '(' / ')', 'if' / 'else') both ways.
func (b *Builder) Link(a, bID TokenID) {
	ta := b.stream.At(a)
	ta.Link = bID
	b.stream.Set(a, ta)

	tb := b.stream.At(bID)
	tb.Link = a
	b.stream.Set(bID, tb)
}

// SetAst wires an operator token to its operands, and the operands' parent
// back to the operator, enforcing the single-root-per-expression invariant
// as long as callers only call SetAst once per operand (I1: the resulting
// parent/child graph is a DAG rooted at the statement root).
func (b *Builder) SetAst(op, operand1, operand2 TokenID) {
	t := b.stream.At(op)
	t.AstOperand1 = operand1
	t.AstOperand2 = operand2
	b.stream.Set(op, t)

	if operand1 != NoTokenID {
		o1 := b.stream.At(operand1)
		o1.AstParent = op
		b.stream.Set(operand1, o1)
	}
	if operand2 != NoTokenID {
		o2 := b.stream.At(operand2)
		o2.AstParent = op
		b.stream.Set(operand2, o2)
	}
}

// SetVariable resolves a token to a Variable identity.
func (b *Builder) SetVariable(id TokenID, v VariableID) {
	t := b.stream.At(id)
	t.Variable = v
	b.stream.Set(id, t)
}

// SetType resolves a token to a Type.
func (b *Builder) SetType(id TokenID, ty TypeID) {
	t := b.stream.At(id)
	t.Type = ty
	b.stream.Set(id, t)
}

// DeclareVariable registers a new Variable and links decl to it.
func (b *Builder) DeclareVariable(decl TokenID, v Variable) VariableID {
	v.DeclTok = decl
	id := b.stream.Vars.Declare(v)
	b.SetVariable(decl, id)
	return id
}

// PushScope creates a child scope under parent.
func (b *Builder) PushScope(kind ScopeKind, parent ScopeID, funcName string) ScopeID {
	return b.stream.Scopes.Push(kind, parent, funcName)
}

// AddType registers a resolved type and returns its TypeID.
func (b *Builder) AddType(t Type) TypeID {
	return b.stream.Types.Add(t)
}

// Finish returns the completed Stream. The Builder should not be reused
// afterward.
func (b *Builder) Finish() *Stream { return b.stream }
