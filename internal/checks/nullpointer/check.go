package nullpointer

import (
	"strconv"

	"ctucheck/internal/ctoken"
	"ctucheck/internal/diag"
	"ctucheck/internal/libfacts"
	"ctucheck/internal/valueflow"
	"ctucheck/internal/vflattice"
)

// Run walks the token range [first, end) reporting pointer dereferences
// whose value set still carries Null, pointer arithmetic on a possibly-null
// pointer, a possibly-null argument passed where the callee requires
// non-null, and pairs a deref with a later redundant null-check on the same
// variable when one appears in range. facts may be nil, in which case
// argument-nullness checking is skipped.
func Run(stream *ctoken.Stream, res *valueflow.Result, first, end ctoken.TokenID, facts *libfacts.Table, rep diag.Reporter) {
	derefs := make(map[ctoken.VariableID]ctoken.TokenID)

	for id := first; id != ctoken.NoTokenID && id != end; id = stream.Next(id) {
		tok := stream.At(id)

		if ptr, ok := derefOperand(tok); ok {
			ptrTok := stream.At(ptr)
			if ptrTok.Variable != ctoken.NoVariableID && res.At(ptr).Contains(vflattice.Null) {
				report(stream, res, ptr, rep)
				derefs[ptrTok.Variable] = ptr
			}
			continue
		}

		if ptr, ok := arithOperand(stream, tok); ok {
			ptrTok := stream.At(ptr)
			if ptrTok.Variable != ctoken.NoVariableID && res.At(ptr).Contains(vflattice.Null) {
				reportArithmetic(stream, res, ptr, id, rep)
			}
		}

		if name, args, ok := callArgs(stream, tok); ok && facts != nil {
			for i, arg := range args {
				argTok := stream.At(arg)
				if argTok.Variable == ctoken.NoVariableID {
					continue
				}
				af := facts.ArgFactsFor(name, i+1)
				if af.NotNull && res.At(arg).Contains(vflattice.Null) {
					reportArgument(stream, res, name, i+1, arg, rep)
				}
			}
		}

		if tok.Kind == ctoken.KwIf {
			if v, ok := guardedVariable(stream, tok.AstOperand1); ok {
				if derefID, seen := derefs[v]; seen {
					reportRedundant(stream, derefID, tok.AstOperand1, rep)
				}
			}
		}
	}
}

// arithOperand returns the pointer operand of a pointer-arithmetic
// expression (p + n, p - n, n + p) when one side is a pointer-typed
// identifier, so a possibly-null pointer being offset can be flagged the
// same way a dereference is.
func arithOperand(stream *ctoken.Stream, tok ctoken.Token) (ctoken.TokenID, bool) {
	if tok.Kind != ctoken.Plus && tok.Kind != ctoken.Minus {
		return ctoken.NoTokenID, false
	}
	for _, operand := range [2]ctoken.TokenID{tok.AstOperand1, tok.AstOperand2} {
		if operand == ctoken.NoTokenID {
			continue
		}
		operandTok := stream.At(operand)
		if operandTok.Kind == ctoken.Ident && operandTok.Variable != ctoken.NoVariableID && stream.TypeOf(operand).IsPointer() {
			return operand, true
		}
	}
	return ctoken.NoTokenID, false
}

// callArgs recognizes a call expression (an LParen AST root whose first
// operand is an unresolved identifier) and returns the callee's name and
// its argument tokens in order, mirroring valueflow.Engine's own call and
// argument-chain conventions.
func callArgs(stream *ctoken.Stream, tok ctoken.Token) (string, []ctoken.TokenID, bool) {
	if tok.Kind != ctoken.LParen || tok.AstOperand1 == ctoken.NoTokenID {
		return "", nil, false
	}
	callee := stream.At(tok.AstOperand1)
	if callee.Kind != ctoken.Ident || callee.Variable != ctoken.NoVariableID {
		return "", nil, false
	}
	var args []ctoken.TokenID
	id := tok.AstOperand2
	for id != ctoken.NoTokenID {
		argTok := stream.At(id)
		if argTok.Kind == ctoken.Comma {
			args = append(args, argTok.AstOperand1)
			id = argTok.AstOperand2
			continue
		}
		args = append(args, id)
		break
	}
	return stream.Str(tok.AstOperand1), args, true
}

// DerefOperand returns the pointer operand of a dereference: `*p` (unary
// Star with no second operand) or `p->member` (Arrow). Exported so other
// packages can classify a token as a syntactic deref position without
// re-deriving the rule.
func DerefOperand(tok ctoken.Token) (ctoken.TokenID, bool) {
	return derefOperand(tok)
}

// derefOperand returns the pointer operand of a dereference: `*p` (unary
// Star with no second operand) or `p->member` (Arrow).
func derefOperand(tok ctoken.Token) (ctoken.TokenID, bool) {
	switch tok.Kind {
	case ctoken.Star:
		if tok.AstOperand2 == ctoken.NoTokenID && tok.AstOperand1 != ctoken.NoTokenID {
			return tok.AstOperand1, true
		}
	case ctoken.Arrow:
		if tok.AstOperand1 != ctoken.NoTokenID {
			return tok.AstOperand1, true
		}
	}
	return ctoken.NoTokenID, false
}

// guardedVariable recognizes the same null-check shapes as valueflow's
// condition classifier (`if (p)`, `if (!p)`, `if (p == NULL)`,
// `if (p != NULL)`) but only needs the tested variable, not which branch is
// non-null — either direction means the variable's nullness was already in
// question at this point.
func guardedVariable(stream *ctoken.Stream, cond ctoken.TokenID) (ctoken.VariableID, bool) {
	tok := stream.At(cond)
	switch tok.Kind {
	case ctoken.Ident:
		if tok.Variable != ctoken.NoVariableID {
			return tok.Variable, true
		}
	case ctoken.Bang:
		inner := stream.At(tok.AstOperand1)
		if inner.Kind == ctoken.Ident && inner.Variable != ctoken.NoVariableID {
			return inner.Variable, true
		}
	case ctoken.EqEq, ctoken.BangEq:
		lhs := stream.At(tok.AstOperand1)
		rhs := stream.At(tok.AstOperand2)
		if lhs.Kind == ctoken.Ident && lhs.Variable != ctoken.NoVariableID && isNullLiteral(rhs) {
			return lhs.Variable, true
		}
		if rhs.Kind == ctoken.Ident && rhs.Variable != ctoken.NoVariableID && isNullLiteral(lhs) {
			return rhs.Variable, true
		}
	}
	return ctoken.NoVariableID, false
}

func isNullLiteral(tok ctoken.Token) bool {
	return (tok.Kind == ctoken.IntLit && tok.Text == "0") || (tok.Kind == ctoken.Ident && tok.Text == "NULL")
}

func report(stream *ctoken.Stream, res *valueflow.Result, ptr ctoken.TokenID, rep diag.Reporter) {
	v := stream.VariableOf(ptr)
	ptrTok := stream.At(ptr)
	d := diag.New(diag.SevWarning, diag.NullPointer, ptrTok.Span, "Possible null pointer dereference: "+v.Name).
		WithVerbose("'" + v.Name + "' can be null at this point and is dereferenced here.")
	if nullVal, ok := res.At(ptr).Find(vflattice.Null); ok && nullVal.Inconclusive {
		d = d.WithCertainty(diag.CertaintyInconclusive)
	}
	rep.Report(d)
}

func reportArithmetic(stream *ctoken.Stream, res *valueflow.Result, ptr, opTok ctoken.TokenID, rep diag.Reporter) {
	v := stream.VariableOf(ptr)
	opSpan := stream.At(opTok).Span
	d := diag.New(diag.SevWarning, diag.NullPointerArithmetic, opSpan, "Pointer arithmetic with NULL pointer: "+v.Name).
		WithVerbose("'" + v.Name + "' can be null at this point and is offset here.")
	if nullVal, ok := res.At(ptr).Find(vflattice.Null); ok && nullVal.Inconclusive {
		d = d.WithCertainty(diag.CertaintyInconclusive)
	}
	rep.Report(d)
}

func reportArgument(stream *ctoken.Stream, res *valueflow.Result, callee string, argIndex int, arg ctoken.TokenID, rep diag.Reporter) {
	v := stream.VariableOf(arg)
	argTok := stream.At(arg)
	d := diag.New(diag.SevWarning, diag.NullPointerArgument, argTok.Span,
		"Null pointer passed to argument "+strconv.Itoa(argIndex)+" of "+callee+"() that must not be null: "+v.Name).
		WithVerbose("'" + v.Name + "' can be null at this point and is passed where " + callee + "() requires a non-null pointer.")
	if nullVal, ok := res.At(arg).Find(vflattice.Null); ok && nullVal.Inconclusive {
		d = d.WithCertainty(diag.CertaintyInconclusive)
	}
	rep.Report(d)
}

func reportRedundant(stream *ctoken.Stream, derefID, condID ctoken.TokenID, rep diag.Reporter) {
	v := stream.VariableOf(derefID)
	condTok := stream.At(condID)
	derefTok := stream.At(derefID)
	d := diag.New(diag.SevWarning, diag.NullPointerRedundant, condTok.Span,
		"Either the condition 'is "+v.Name+" null' is redundant or there is possible null pointer dereference").
		WithNote(derefTok.Span, v.Name+" is dereferenced here without being null-checked first")
	rep.Report(d)
}
