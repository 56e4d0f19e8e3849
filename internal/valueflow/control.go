package valueflow

import (
	"ctucheck/internal/ctoken"
	"ctucheck/internal/vflattice"
)

// refinement describes how a branch condition narrows one variable's value
// set. nonNullOnly is true when the condition's TRUE branch guarantees the
// variable is non-null (e.g. bare `if (p)`, `if (p != NULL)`); false means
// the TRUE branch guarantees it is null (e.g. `if (!p)`, `if (p == NULL)`).
type refinement struct {
	variable    ctoken.VariableID
	nonNullOnly bool
	recognized  bool
}

// classifyCondition implements rule 5 (condition-based refinement) for the
// recognized guard shapes: a bare pointer (`if (p)`), its negation
// (`if (!p)`), and explicit null comparisons (`if (p == NULL)` /
// `if (p != NULL)`).
func (e *Engine) classifyCondition(cond ctoken.TokenID) refinement {
	tok := e.stream.At(cond)
	switch tok.Kind {
	case ctoken.Ident:
		if tok.Variable == ctoken.NoVariableID {
			return refinement{}
		}
		return refinement{variable: tok.Variable, nonNullOnly: true, recognized: true}
	case ctoken.Bang:
		inner := e.stream.At(tok.AstOperand1)
		if inner.Kind == ctoken.Ident && inner.Variable != ctoken.NoVariableID {
			return refinement{variable: inner.Variable, nonNullOnly: false, recognized: true}
		}
	case ctoken.EqEq, ctoken.BangEq:
		lhs := e.stream.At(tok.AstOperand1)
		rhs := e.stream.At(tok.AstOperand2)
		var identTok, litTok ctoken.Token
		switch {
		case lhs.Kind == ctoken.Ident && lhs.Variable != ctoken.NoVariableID:
			identTok, litTok = lhs, rhs
		case rhs.Kind == ctoken.Ident && rhs.Variable != ctoken.NoVariableID:
			identTok, litTok = rhs, lhs
		default:
			return refinement{}
		}
		if !isNullLiteral(litTok) {
			return refinement{}
		}
		// p != NULL  -> true branch is non-null, same as bare `if (p)`.
		// p == NULL  -> true branch is null, same as `if (!p)`.
		trueBranchNonNull := tok.Kind == ctoken.BangEq
		return refinement{variable: identTok.Variable, nonNullOnly: trueBranchNonNull, recognized: true}
	}
	return refinement{}
}

func isNullLiteral(tok ctoken.Token) bool {
	if tok.Kind == ctoken.IntLit && tok.Text == "0" {
		return true
	}
	if tok.Kind == ctoken.Ident && tok.Text == "NULL" {
		return true
	}
	return false
}

// applyRefinement returns a copy of cv with the condition's variable
// narrowed for the true branch (invert=false) or the false branch
// (invert=true).
func applyRefinement(cv env, r refinement, invert bool) env {
	if !r.recognized {
		return cv.clone()
	}
	out := cv.clone()
	vs, ok := out.get(r.variable)
	if !ok {
		return out
	}
	// r.nonNullOnly describes the TRUE branch; invert selects the FALSE
	// branch instead.
	takesNonNull := r.nonNullOnly
	if invert {
		takesNonNull = !r.nonNullOnly
	}
	if takesNonNull {
		vs = vs.Refine(vflattice.Null, true)
	} else {
		vs = vs.Refine(vflattice.NonNull, true)
	}
	out.set(r.variable, vs)
	return out
}

// evalIf implements rule 5 end to end: evaluate the condition, refine both
// branches, run them, and join the results. Returns the token after the
// whole if/else construct, the merged environment, and whether every
// reachable branch terminates the enclosing function.
func (e *Engine) evalIf(ifTok ctoken.TokenID, cv env) (ctoken.TokenID, env, bool) {
	tok := e.stream.At(ifTok)
	cond := tok.AstOperand1
	e.eval(cond, cv)
	r := e.classifyCondition(cond)

	openParen := e.stream.Next(ifTok)
	closeParen := e.stream.LinkOf(openParen)
	thenOpen := e.stream.Next(closeParen)
	thenClose := e.stream.LinkOf(thenOpen)

	thenEnv, thenTerm := e.runBlock(e.stream.Next(thenOpen), thenClose, applyRefinement(cv, r, false))

	after := e.stream.Next(thenClose)
	if after != ctoken.NoTokenID && e.stream.At(after).Kind == ctoken.KwElse {
		elseOpen := e.stream.Next(after)
		elseClose := e.stream.LinkOf(elseOpen)
		elseEnv, elseTerm := e.runBlock(e.stream.Next(elseOpen), elseClose, applyRefinement(cv, r, true))
		merged := joinEnv(e.opts.WideningBound, thenEnv, elseEnv)
		return e.stream.Next(elseClose), merged, thenTerm && elseTerm
	}

	// No else: the false branch is the refined-false fallthrough of cv.
	elseEnv := applyRefinement(cv, r, true)
	merged := joinEnv(e.opts.WideningBound, thenEnv, elseEnv)
	return after, merged, false
}

// evalWhile implements rules 5 and 6: bounded fixed-point iteration over the
// loop body. Values computed after the budget is exhausted without reaching
// a fixed point are marked inconclusive (DESIGN.md Open Question #1).
func (e *Engine) evalWhile(whileTok ctoken.TokenID, cv env) (ctoken.TokenID, env) {
	tok := e.stream.At(whileTok)
	cond := tok.AstOperand1

	openParen := e.stream.Next(whileTok)
	closeParen := e.stream.LinkOf(openParen)
	bodyOpen := e.stream.Next(closeParen)
	bodyClose := e.stream.LinkOf(bodyOpen)

	r := e.classifyCondition(cond)
	cur := cv.clone()
	reachedFixedPoint := false
	for i := 0; i < e.opts.LoopBudget; i++ {
		e.eval(cond, cur)
		bodyStart := applyRefinement(cur, r, false)
		next, _ := e.runBlock(e.stream.Next(bodyOpen), bodyClose, bodyStart)
		merged := joinEnv(e.opts.WideningBound, cur, next)
		if equalEnv(merged, cur) {
			cur = merged
			reachedFixedPoint = true
			break
		}
		cur = merged
	}
	if !reachedFixedPoint && e.opts.Inconclusive {
		cur = markInconclusive(cur)
	}
	// Loop may execute zero times: join with the pre-loop environment too.
	final := joinEnv(e.opts.WideningBound, cv, cur)
	return e.stream.Next(bodyClose), final
}

func markInconclusive(e env) env {
	out := make(env, len(e))
	for id, vs := range e {
		if vs.IsTop() {
			out[id] = vs
			continue
		}
		var marked []vflattice.Value
		for _, v := range vs.Values() {
			marked = append(marked, v.WithInconclusive())
		}
		out[id] = vflattice.NewValueSet(DefaultWideningBound, marked...)
	}
	return out
}

// evalSwitch implements rule 7: every case/default arm is folded
// independently from the pre-switch environment and the results joined,
// since arms may fall through into each other and this engine does not
// model fallthrough precision beyond "any arm's exit state is possible".
func (e *Engine) evalSwitch(switchTok ctoken.TokenID, cv env) (ctoken.TokenID, env) {
	tok := e.stream.At(switchTok)
	e.eval(tok.AstOperand1, cv)

	openParen := e.stream.Next(switchTok)
	closeParen := e.stream.LinkOf(openParen)
	bodyOpen := e.stream.Next(closeParen)
	bodyClose := e.stream.LinkOf(bodyOpen)

	merged := cv.clone()
	armStart := e.stream.Next(bodyOpen)
	for armStart != ctoken.NoTokenID && armStart != bodyClose {
		armEnd := e.nextCaseOrEnd(armStart, bodyClose)
		armEnv, _ := e.runBlock(armStart, armEnd, cv.clone())
		merged = joinEnv(e.opts.WideningBound, merged, armEnv)
		armStart = armEnd
	}
	return e.stream.Next(bodyClose), merged
}

// nextCaseOrEnd scans forward from start (skipping the case/default label
// token itself and its colon) to the next KwCase/KwDefault token at the
// switch's top nesting level, or bodyClose.
func (e *Engine) nextCaseOrEnd(start, bodyClose ctoken.TokenID) ctoken.TokenID {
	id := start
	if k := e.stream.At(id).Kind; k == ctoken.KwCase || k == ctoken.KwDefault {
		for id != ctoken.NoTokenID && e.stream.At(id).Kind != ctoken.Colon {
			id = e.stream.Next(id)
		}
		id = e.stream.Next(id) // past the colon
	}
	depth := 0
	for id != ctoken.NoTokenID && id != bodyClose {
		switch e.stream.At(id).Kind {
		case ctoken.LBrace:
			depth++
		case ctoken.RBrace:
			depth--
		case ctoken.KwCase, ctoken.KwDefault:
			if depth == 0 {
				return id
			}
		}
		id = e.stream.Next(id)
	}
	return bodyClose
}
