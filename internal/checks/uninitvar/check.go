package uninitvar

import (
	"ctucheck/internal/ctoken"
	"ctucheck/internal/diag"
	"ctucheck/internal/valueflow"
	"ctucheck/internal/vflattice"
)

// Run walks the token range [first, end) reporting every read of a variable
// or struct member whose value set still carries Uninit at that point, and
// every read through a pointer whose pointee still holds raw,
// never-written-to allocator bytes. end is exclusive, as with
// valueflow.Engine.Run.
func Run(stream *ctoken.Stream, res *valueflow.Result, first, end ctoken.TokenID, rep diag.Reporter) {
	for id := first; id != ctoken.NoTokenID && id != end; id = stream.Next(id) {
		tok := stream.At(id)

		switch {
		case tok.Kind == ctoken.Ident && tok.Variable != ctoken.NoVariableID:
			v := stream.VariableOf(id)
			if v.DeclTok == id {
				continue // the declaration itself is not a use
			}
			if isMemberBase(stream, id) {
				continue // ab in ab.b is not itself read; the member is
			}
			if isAssignTarget(stream, id) {
				continue // writing to a variable is not a use
			}
			if !res.Contains(id, vflattice.Uninit) {
				continue
			}
			report(stream, v, id, res, rep)

		case (tok.Kind == ctoken.Star && tok.AstOperand2 == ctoken.NoTokenID) || tok.Kind == ctoken.LBracket:
			if isAssignTarget(stream, id) {
				continue // writing through the pointer is not a read of its pointee
			}
			if !res.Contains(id, vflattice.Uninit) {
				continue
			}
			reportData(stream, id, res, rep)
		}
	}
}

// isAssignTarget reports whether id is the left-hand side of an assignment —
// cppcheck's isVariableUsage excludes exactly this position. This covers a
// plain variable (x = ...), a struct member (ab.a = ...), and a write
// through a pointer (*p = ..., s[i] = ...): in each case id is the AST
// token that is itself the assignment's first operand.
func isAssignTarget(stream *ctoken.Stream, id ctoken.TokenID) bool {
	target := id
	if isMemberAccess(stream, id) {
		target = stream.AstParentOf(id) // the owning Dot/Arrow token
	}
	parent := stream.AstParentOf(target)
	if parent == ctoken.NoTokenID {
		return false
	}
	pt := stream.At(parent)
	return pt.Kind.IsAssignOp() && pt.AstOperand1 == target
}

// isMemberBase reports whether id is the base operand of a Dot or Arrow
// expression (the ab in ab.b), whose own flat value set never reflects a
// sibling member's initialization and so would otherwise false-flag the
// whole struct on every member access.
func isMemberBase(stream *ctoken.Stream, id ctoken.TokenID) bool {
	parent := stream.AstParentOf(id)
	if parent == ctoken.NoTokenID {
		return false
	}
	pt := stream.At(parent)
	return (pt.Kind == ctoken.Dot || pt.Kind == ctoken.Arrow) && pt.AstOperand1 == id
}

// isMemberAccess reports whether id is the member-name operand of a Dot or
// Arrow expression (ab.b, ab->b), as opposed to a free-standing identifier.
func isMemberAccess(stream *ctoken.Stream, id ctoken.TokenID) bool {
	parent := stream.AstParentOf(id)
	if parent == ctoken.NoTokenID {
		return false
	}
	pt := stream.At(parent)
	return (pt.Kind == ctoken.Dot || pt.Kind == ctoken.Arrow) && pt.AstOperand2 == id
}

func report(stream *ctoken.Stream, v ctoken.Variable, use ctoken.TokenID, res *valueflow.Result, rep diag.Reporter) {
	useTok := stream.At(use)
	code := diag.UninitVar
	if len(v.Members) > 0 || isMemberAccess(stream, use) {
		code = diag.UninitStructMember
	}

	d := diag.NewError(code, useTok.Span, "Uninitialized variable: "+v.Name).
		WithVerbose("'" + v.Name + "' is read here before any value has been assigned to it.")

	if declTok := stream.At(v.DeclTok); v.DeclTok != ctoken.NoTokenID {
		d = d.WithNote(declTok.Span, v.Name+" is declared here")
	}

	if uninitVal, ok := res.At(use).Find(vflattice.Uninit); ok && uninitVal.Inconclusive {
		d = d.WithCertainty(diag.CertaintyInconclusive)
	}

	rep.Report(d)
}

// reportData reports a read through a pointer (*p or p[i]) whose pointee
// still holds the uninitialized bytes an allocator handed back — distinct
// from UninitVar/UninitStructMember because no single named variable is the
// uninitialized storage, the allocation is.
func reportData(stream *ctoken.Stream, use ctoken.TokenID, res *valueflow.Result, rep diag.Reporter) {
	useTok := stream.At(use)
	d := diag.NewError(diag.UninitData, useTok.Span, "Memory is allocated but not initialized").
		WithVerbose("this reads through a pointer whose memory was allocated but never written to.")

	if uninitVal, ok := res.At(use).Find(vflattice.Uninit); ok && uninitVal.Inconclusive {
		d = d.WithCertainty(diag.CertaintyInconclusive)
	}

	rep.Report(d)
}
