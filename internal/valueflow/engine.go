package valueflow

import (
	"strconv"

	"ctucheck/internal/ctoken"
	"ctucheck/internal/libfacts"
	"ctucheck/internal/vflattice"
)

// Engine propagates abstract values over one translation unit's tokens.
type Engine struct {
	stream *ctoken.Stream
	facts  *libfacts.Table
	opts   Options
	res    *Result

	// heapUninit tracks, per pointer variable, whether its pointee still
	// holds the uninitialized bytes malloc/realloc handed back (rule 4).
	// Unlike env this is not branch-sensitive — the deref-only fallback
	// this mirrors (eval's Star case) already accepts the same
	// simplification for pointee contents in general.
	heapUninit map[ctoken.VariableID]bool
}

// NewEngine constructs an Engine bound to a frozen Stream and a library
// facts table (nil is treated as an empty table, per libfacts.Lookup).
func NewEngine(stream *ctoken.Stream, facts *libfacts.Table, opts Options) *Engine {
	return &Engine{
		stream:     stream,
		facts:      facts,
		opts:       opts.normalized(),
		res:        newResult(),
		heapUninit: make(map[ctoken.VariableID]bool),
	}
}

// Run walks the block delimited by [first, end) — end is exclusive and is
// typically the function's closing brace — and returns the accumulated
// Result, with no entry assumptions about any variable referenced in range.
// Run may be called once per Engine.
//
// CTU summary extraction (internal/ctu) calls Run directly rather than
// RunFunction: a parameter's value set staying exactly Top is what marks a
// use as "this engine never proved it safe", the conservative signal that
// drives flagging an unguarded forward regardless of which invalid kind a
// future caller turns out to pass.
func (e *Engine) Run(first, end ctoken.TokenID) *Result {
	e.runBlock(first, end, newEnv())
	return e.res
}

// RunFunction behaves like Run but first seeds every pointer-typed parameter
// referenced in [first, end) with {Null, NonNull} (rule 8's entry
// assumption: a parameter holds some value a caller outside this engine's
// view supplied, possibly null). Per-unit diagnostics (internal/driver's
// AnalyzeFunction) use this; it is what lets an unguarded `*p` on a bare
// pointer parameter carry Null without ever having seen an allocation.
func (e *Engine) RunFunction(first, end ctoken.TokenID) *Result {
	e.runBlock(first, end, e.seedParams(first, end))
	return e.res
}

// seedParams scans [first, end) once for IsParam variables referenced in
// that range and seeds pointer-typed ones with their entry value set.
// Parameter declarator tokens are not necessarily inside [first, end)
// themselves (they may sit in an enclosing scope ahead of the body), so this
// walks the body for references rather than the declaration list.
func (e *Engine) seedParams(first, end ctoken.TokenID) env {
	cv := newEnv()
	seen := make(map[ctoken.VariableID]bool)
	for id := first; id != ctoken.NoTokenID && id != end; id = e.stream.Next(id) {
		tok := e.stream.At(id)
		if tok.Kind != ctoken.Ident || tok.Variable == ctoken.NoVariableID {
			continue
		}
		v := e.stream.VariableOf(id)
		if !v.IsParam || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		ty := e.stream.TypeOf(id)
		if !ty.IsPointer() {
			ty = e.stream.Types.Get(v.Type)
		}
		if ty.IsPointer() {
			cv.set(v.ID, vflattice.NewValueSet(e.opts.WideningBound, vflattice.NullValue(false), vflattice.NonNullValue()))
		}
	}
	return cv
}

// runBlock folds a straight-line sequence of statements over env, returning
// the environment after the block and whether the block definitely
// terminates the enclosing function (rule 10: jump handling).
func (e *Engine) runBlock(first, end ctoken.TokenID, startEnv env) (env, bool) {
	cur := first
	cv := startEnv
	for cur != ctoken.NoTokenID && cur != end {
		tok := e.stream.At(cur)
		switch tok.Kind {
		case ctoken.KwIf:
			var terminal bool
			cur, cv, terminal = e.evalIf(cur, cv)
			if terminal {
				return cv, true
			}
		case ctoken.KwWhile:
			cur, cv = e.evalWhile(cur, cv)
		case ctoken.KwSwitch:
			cur, cv = e.evalSwitch(cur, cv)
		case ctoken.KwReturn, ctoken.KwBreak, ctoken.KwContinue, ctoken.KwGoto:
			stmtEnd := e.statementEnd(cur)
			if tok.AstOperand1 != ctoken.NoTokenID {
				e.eval(tok.AstOperand1, cv)
			}
			_ = stmtEnd
			return cv, true
		case ctoken.LBrace:
			closeID := e.stream.LinkOf(cur)
			cv, _ = e.runBlock(e.stream.Next(cur), closeID, cv)
			cur = e.stream.Next(closeID)
		default:
			if tok.IsTypeKeyword() {
				cur, cv = e.evalDecl(cur, cv)
				continue
			}
			stmtEnd := e.statementEnd(cur)
			if root := e.findStmtRoot(cur, stmtEnd); root != ctoken.NoTokenID {
				e.eval(root, cv)
				if e.stream.At(root).Kind == ctoken.Assign {
					e.applyAssign(root, cv)
				}
			}
			cur = e.stream.Next(stmtEnd)
		}
	}
	return cv, false
}

// statementEnd finds the Semicolon ending the statement that starts at tok,
// not descending into parenthesised sub-expressions.
func (e *Engine) statementEnd(tok ctoken.TokenID) ctoken.TokenID {
	depth := 0
	for id := tok; id != ctoken.NoTokenID; id = e.stream.Next(id) {
		switch e.stream.At(id).Kind {
		case ctoken.LParen:
			depth++
		case ctoken.RParen:
			depth--
		case ctoken.Semicolon:
			if depth <= 0 {
				return id
			}
		}
	}
	return ctoken.NoTokenID
}

// findStmtRoot returns the AST root token within [start, end), i.e. the
// token with no AstParent that has at least one operand, or a bare
// function-call/identifier expression statement.
func (e *Engine) findStmtRoot(start, end ctoken.TokenID) ctoken.TokenID {
	for id := start; id != ctoken.NoTokenID && id != end; id = e.stream.Next(id) {
		if e.stream.IsAstRoot(id) {
			return id
		}
	}
	// bare call or identifier statement: first token of the range if it
	// has no parent at all.
	if start != ctoken.NoTokenID && e.stream.AstParentOf(start) == ctoken.NoTokenID {
		return start
	}
	return ctoken.NoTokenID
}

// evalDecl implements rule 3 (declaration without initializer, including the
// struct-member rule that every leaf member starts Uninit independently) and
// feeds rule 2 (unconditional assignment) when an initializer is present.
func (e *Engine) evalDecl(start ctoken.TokenID, cv env) (ctoken.TokenID, env) {
	id := start
	for id != ctoken.NoTokenID && (e.stream.At(id).Kind.IsTypeKeyword() || e.stream.At(id).Kind == ctoken.Star) {
		id = e.stream.Next(id)
	}
	declTok := id // the identifier token
	v := e.stream.VariableOf(declTok)

	next := e.stream.Next(declTok)
	if next != ctoken.NoTokenID && e.stream.At(next).Kind == ctoken.Assign {
		initRoot := e.stream.AstOperand2Of(next)
		initVS := e.eval(initRoot, cv)
		e.res.store(declTok, initVS)
		cv.set(v.ID, initVS)
		e.recordHeapState(v.ID, initRoot)
		stmtEnd := e.statementEnd(start)
		return e.stream.Next(stmtEnd), cv
	}

	// No initializer: the declared storage holds Uninit until written. Each
	// leaf member of an aggregate gets its own Uninit entry, so a later
	// write to one member (ab.a = 0) clears only that member's status.
	uninitVS := vflattice.NewValueSet(e.opts.WideningBound, vflattice.UninitValue(true))
	e.res.store(declTok, uninitVS)
	cv.set(v.ID, uninitVS)
	for _, m := range v.Members {
		cv.set(m, uninitVS)
	}
	stmtEnd := e.statementEnd(start)
	return e.stream.Next(stmtEnd), cv
}

// applyAssign implements rule 2 for assignments to an already-declared
// variable, a struct member (ab.a = ...), or through a pointer (*p = ...,
// s[i] = ...) appearing as an expression statement (as opposed to a
// declaration's initializer, handled in evalDecl).
func (e *Engine) applyAssign(assignTok ctoken.TokenID, cv env) {
	lhs := e.stream.AstOperand1Of(assignTok)
	rhs := e.stream.AstOperand2Of(assignTok)
	lhsTok := e.stream.At(lhs)

	switch {
	case lhsTok.Kind == ctoken.Dot || lhsTok.Kind == ctoken.Arrow:
		member := lhsTok.AstOperand2
		memberTok := e.stream.At(member)
		if memberTok.Variable == ctoken.NoVariableID {
			return
		}
		rhsVS := e.eval(rhs, cv)
		e.res.store(assignTok, rhsVS)
		e.res.store(member, rhsVS)
		cv.set(memberTok.Variable, rhsVS)
		return

	case (lhsTok.Kind == ctoken.Star && lhsTok.AstOperand2 == ctoken.NoTokenID) || lhsTok.Kind == ctoken.LBracket:
		rhsVS := e.eval(rhs, cv)
		e.res.store(assignTok, rhsVS)
		// writing through a pointer clears its pointee's Uninit status
		// (rule 4: "writing through p before reading clears Uninit").
		ptrTok := e.stream.At(lhsTok.AstOperand1)
		if ptrTok.Variable != ctoken.NoVariableID {
			delete(e.heapUninit, ptrTok.Variable)
		}
		return
	}

	v := e.stream.VariableOf(lhs)
	if v.ID == ctoken.NoVariableID {
		return
	}
	rhsVS := e.eval(rhs, cv)
	e.res.store(assignTok, rhsVS)
	e.res.store(lhs, rhsVS)
	cv.set(v.ID, rhsVS)
	e.recordHeapState(v.ID, rhs)
}

// recordHeapState implements rule 4's malloc/realloc-vs-calloc distinction:
// a pointer variable assigned straight from malloc/realloc has an
// uninitialized pointee; calloc's pointee is zeroed; anything else (a cast
// of one of those calls is transparent here, as with every other cast)
// clears the bit, since the pointer no longer necessarily aliases that
// allocation.
func (e *Engine) recordHeapState(id ctoken.VariableID, exprRoot ctoken.TokenID) {
	if id == ctoken.NoVariableID {
		return
	}
	tok := e.stream.At(exprRoot)
	if tok.Kind != ctoken.LParen || !e.isCall(tok) {
		delete(e.heapUninit, id)
		return
	}
	switch e.stream.Str(tok.AstOperand1) {
	case "malloc", "realloc":
		e.heapUninit[id] = true
	default:
		delete(e.heapUninit, id)
	}
}

// eval implements rules 1 (literals), 4 (heap allocation), 8 (call
// effects), and the non-control-flow parts of 9 (ternary handled in
// evalTernary) by recursively evaluating an expression tree rooted at id.
func (e *Engine) eval(id ctoken.TokenID, cv env) vflattice.ValueSet {
	if id == ctoken.NoTokenID {
		return vflattice.ValueSet{}
	}
	if vs, ok := e.res.values[id]; ok {
		return vs
	}
	tok := e.stream.At(id)

	var vs vflattice.ValueSet
	switch {
	case tok.Kind.IsLiteral():
		vs = e.evalLiteral(tok)
	case tok.Kind == ctoken.Ident && tok.Variable != ctoken.NoVariableID:
		if found, ok := cv.get(tok.Variable); ok {
			vs = found
		} else {
			vs = vflattice.TopSet()
		}
	case tok.Kind == ctoken.Amp:
		// address-of: the result is always a valid, non-null pointer.
		vs = vflattice.NewValueSet(e.opts.WideningBound, vflattice.NonNullValue())
	case tok.Kind == ctoken.Star && tok.AstOperand2 == ctoken.NoTokenID:
		// unary dereference; the deref site itself is judged by
		// internal/checks/nullpointer against the pointer operand's value
		// set, not this result.
		vs = e.evalDerefPointee(tok.AstOperand1, cv)
	case tok.Kind == ctoken.LBracket:
		// s[i]: same pointee as *s (rule 4 doesn't distinguish indexing
		// from unary deref).
		vs = e.evalDerefPointee(tok.AstOperand1, cv)
	case tok.Kind == ctoken.Dot || tok.Kind == ctoken.Arrow:
		e.eval(tok.AstOperand1, cv) // evaluate the base for its own diagnostics
		vs = e.eval(tok.AstOperand2, cv)
	case tok.Kind == ctoken.LParen && tok.AstOperand1 != ctoken.NoTokenID && e.isCall(tok):
		vs = e.evalCall(id, cv)
	case tok.Kind == ctoken.Question:
		vs = e.evalTernary(id, cv)
	case tok.Kind.IsComparisonOp() || tok.Kind == ctoken.AndAnd || tok.Kind == ctoken.OrOr:
		e.eval(tok.AstOperand1, cv)
		e.eval(tok.AstOperand2, cv)
		vs = vflattice.TopSet() // boolean result; condition rules read operands directly
	default:
		lhs := e.eval(tok.AstOperand1, cv)
		rhs := e.eval(tok.AstOperand2, cv)
		if lhs.Contains(vflattice.Uninit) || rhs.Contains(vflattice.Uninit) {
			vs = vflattice.NewValueSet(e.opts.WideningBound, vflattice.UninitValue(true))
		} else {
			vs = vflattice.TopSet()
		}
	}
	e.res.store(id, vs)
	return vs
}

// evalDerefPointee implements the read side of rule 4's heap-pointee
// tracking: Top in general (pointee contents aren't modeled independently),
// except when ptr was last assigned straight from malloc/realloc and
// nothing has written through it since — then the bytes are still the raw
// Uninit the allocator handed back.
func (e *Engine) evalDerefPointee(ptr ctoken.TokenID, cv env) vflattice.ValueSet {
	e.eval(ptr, cv)
	ptrTok := e.stream.At(ptr)
	if ptrTok.Variable != ctoken.NoVariableID && e.heapUninit[ptrTok.Variable] {
		return vflattice.NewValueSet(e.opts.WideningBound, vflattice.UninitValue(true))
	}
	return vflattice.TopSet()
}

func (e *Engine) evalLiteral(tok ctoken.Token) vflattice.ValueSet {
	switch tok.Kind {
	case ctoken.IntLit:
		if n, err := strconv.ParseInt(tok.Text, 0, 64); err == nil {
			return vflattice.NewValueSet(e.opts.WideningBound, vflattice.KnownValue(n))
		}
		return vflattice.TopSet()
	case ctoken.StringLit:
		return vflattice.NewValueSet(e.opts.WideningBound, vflattice.NonNullValue())
	default:
		return vflattice.TopSet()
	}
}

// isCall reports whether tok (an LParen AST root) represents a call
// expression: its first operand is an identifier naming a function, i.e.
// not itself a resolved Variable.
func (e *Engine) isCall(tok ctoken.Token) bool {
	callee := e.stream.At(tok.AstOperand1)
	return callee.Kind == ctoken.Ident && callee.Variable == ctoken.NoVariableID
}

// evalCallArgs evaluates a call's argument list for its own diagnostics and
// returns each argument's root token in order. Multiple arguments chain
// through nested Comma nodes: AstOperand1 is this argument, AstOperand2 is
// either the next Comma or the final argument.
func (e *Engine) evalCallArgs(root ctoken.TokenID, cv env) []ctoken.TokenID {
	var args []ctoken.TokenID
	id := root
	for id != ctoken.NoTokenID {
		tok := e.stream.At(id)
		if tok.Kind == ctoken.Comma {
			e.eval(tok.AstOperand1, cv)
			args = append(args, tok.AstOperand1)
			id = tok.AstOperand2
			continue
		}
		e.eval(id, cv)
		args = append(args, id)
		break
	}
	return args
}

// clearPointeeUninit marks arg's pointee as no longer holding raw allocator
// bytes, used when a call's Out/InOut argument facts say the callee writes
// through it.
func (e *Engine) clearPointeeUninit(argTok ctoken.TokenID) {
	if v := e.stream.At(argTok).Variable; v != ctoken.NoVariableID {
		delete(e.heapUninit, v)
	}
}

// evalCall implements rule 8 (library-fact-driven call effects) and rule 4
// (heap allocation): malloc/realloc return a pointer that may be Null
// (allocation failure) and whose pointee is Uninit (tracked in heapUninit,
// not in the returned value set, since the allocation expression itself has
// no Uninit-carrying pointee to report — only a later deref does); calloc's
// pointee is zeroed but the pointer itself may still be Null. An argument
// fact's Direction of Out or InOut means the callee writes through that
// pointer, clearing whatever Uninit state its pointee carried.
func (e *Engine) evalCall(callTok ctoken.TokenID, cv env) vflattice.ValueSet {
	tok := e.stream.At(callTok)
	name := e.stream.Str(tok.AstOperand1)
	var args []ctoken.TokenID
	if tok.AstOperand2 != ctoken.NoTokenID {
		args = e.evalCallArgs(tok.AstOperand2, cv)
	}

	switch name {
	case "malloc", "realloc", "calloc":
		return vflattice.NewValueSet(e.opts.WideningBound, vflattice.NullValue(false), vflattice.NonNullValue())
	}

	if e.facts != nil {
		if f, ok := e.facts.Lookup(name); ok {
			for i, arg := range args {
				af := f.Args[i+1]
				if af.Direction == libfacts.DirectionOut || af.Direction == libfacts.DirectionInOut {
					e.clearPointeeUninit(arg)
				}
			}
			if f.NoReturn {
				return vflattice.NewValueSet(e.opts.WideningBound, vflattice.TopValue())
			}
		}
	}
	return vflattice.TopSet()
}

// evalTernary implements rule 9: the ternary's value is the join of its two
// branch values, both of which are still evaluated for their own
// diagnostics regardless of which branch is "taken" by any particular run.
func (e *Engine) evalTernary(id ctoken.TokenID, cv env) vflattice.ValueSet {
	// Builder convention: Question.AstOperand1 = then-branch, AstOperand2 = else-branch.
	tok := e.stream.At(id)
	thenVS := e.eval(tok.AstOperand1, cv)
	elseVS := e.eval(tok.AstOperand2, cv)
	return vflattice.Join(e.opts.WideningBound, thenVS, elseVS)
}
