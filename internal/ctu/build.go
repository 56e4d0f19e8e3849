package ctu

import (
	"ctucheck/internal/ctoken"
	"ctucheck/internal/diag"
	"ctucheck/internal/source"
	"ctucheck/internal/valueflow"
	"ctucheck/internal/vflattice"
)

// FuncRange names one function's body — the minimal shape BuildFileInfo
// needs from a driver's function-discovery pass (internal/driver's own
// FunctionRange, converted by the caller).
type FuncRange struct {
	Name  string
	First ctoken.TokenID
	End   ctoken.TokenID
}

func getFunctionId(name string) FunctionID { return FunctionID(name) }

func location(fs *source.FileSet, sp source.Span) Location {
	start, _ := fs.Resolve(sp)
	return Location{File: fs.Get(sp.File).Path, Line: int(start.Line), Column: int(start.Col)}
}

// BuildFileInfo walks every function in fns and extracts the CTU summary
//: unsafe parameter usages, unguarded forwards to callees,
// and call facts for dangerous arguments passed out.
func BuildFileInfo(path string, fs *source.FileSet, stream *ctoken.Stream, res *valueflow.Result, fns []FuncRange) *FileInfo {
	info := &FileInfo{Path: path}
	for _, fn := range fns {
		summary := FunctionSummary{FunctionID: getFunctionId(fn.Name)}
		for id := fn.First; id != ctoken.NoTokenID && id != fn.End; id = stream.Next(id) {
			tok := stream.At(id)

			if ptr, ok := derefOperand(tok); ok {
				if u, ok := unsafeUsage(stream, fs, res, ptr); ok {
					summary.UnsafeUsages = append(summary.UnsafeUsages, u...)
				}
				continue
			}

			if tok.Kind == ctoken.LParen && isCallRoot(stream, tok) {
				if nc, ok := nestedCall(stream, fs, res, summary.FunctionID, id); ok {
					summary.NestedCalls = append(summary.NestedCalls, nc)
				}
				if fc, ok := callFact(stream, fs, res, id); ok {
					summary.FunctionCalls = append(summary.FunctionCalls, fc)
				}
			}
		}
		info.Functions = append(info.Functions, summary)
	}
	return info
}

// derefOperand mirrors internal/checks/nullpointer's pattern: `*p` (unary
// Star) or `p->member` (Arrow).
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

// unsafeUsage reports the deref at ptr as an unsafe usage of its parameter
// when the pointer's value set at this use is still its untouched entry
// value — no reassignment, no guard refined it (vflattice.ValueSet.IsTop
// is exactly this engine's "entry value" marker, see valueflow.Engine.Run).
func unsafeUsage(stream *ctoken.Stream, fs *source.FileSet, res *valueflow.Result, ptr ctoken.TokenID) ([]UnsafeUsage, bool) {
	ptrTok := stream.At(ptr)
	if ptrTok.Variable == ctoken.NoVariableID {
		return nil, false
	}
	v := stream.VariableOf(ptr)
	if !v.IsParam || !res.At(ptr).IsTop() {
		return nil, false
	}
	loc := location(fs, ptrTok.Span)
	return []UnsafeUsage{
		{CheckID: diag.CtuNullPointer, ArgIndex: v.ParamIndex, ParamName: v.Name, Invalid: InvalidNull, Location: loc},
		{CheckID: diag.CtuUninitVar, ArgIndex: v.ParamIndex, ParamName: v.Name, Invalid: InvalidUninit, Location: loc},
	}, true
}

// isCallRoot reports whether tok (an LParen) is a call expression's AST
// root: its first operand is an identifier naming a function, not a
// resolved variable (valueflow.Engine.isCall's shape).
func isCallRoot(stream *ctoken.Stream, tok ctoken.Token) bool {
	if tok.AstOperand1 == ctoken.NoTokenID {
		return false
	}
	callee := stream.At(tok.AstOperand1)
	return callee.Kind == ctoken.Ident && callee.Variable == ctoken.NoVariableID
}

// nestedCall reports whether the call's single argument is a parameter of
// myID forwarded unguarded (entry value untouched) — the hop the
// depth-bounded join in join.go continues across. CallArgNr is always 0:
// only a call with exactly one argument is examined.
func nestedCall(stream *ctoken.Stream, fs *source.FileSet, res *valueflow.Result, myID FunctionID, callTok ctoken.TokenID) (NestedCall, bool) {
	tok := stream.At(callTok)
	if tok.AstOperand2 == ctoken.NoTokenID {
		return NestedCall{}, false
	}
	arg := stream.At(tok.AstOperand2)
	if arg.Kind != ctoken.Ident || arg.Variable == ctoken.NoVariableID {
		return NestedCall{}, false
	}
	v := stream.VariableOf(tok.AstOperand2)
	if !v.IsParam || !res.At(tok.AstOperand2).IsTop() {
		return NestedCall{}, false
	}
	calleeName := stream.Str(tok.AstOperand1)
	return NestedCall{
		MyID:      myID,
		MyArgNr:   v.ParamIndex,
		CallID:    getFunctionId(calleeName),
		CallArgNr: 0,
		Location:  location(fs, tok.Span),
	}, true
}

// callFact records the value a single-argument call passes: CallNull for a
// null constant or a variable whose value set contains Null, CallUninit for
// an uninitialized variable or the address of one, and CallKnown for a
// Known integer value.
func callFact(stream *ctoken.Stream, fs *source.FileSet, res *valueflow.Result, callTok ctoken.TokenID) (FunctionCall, bool) {
	tok := stream.At(callTok)
	if tok.AstOperand2 == ctoken.NoTokenID {
		return FunctionCall{}, false
	}
	argTok := tok.AstOperand2
	arg := stream.At(argTok)
	calleeName := stream.Str(tok.AstOperand1)
	loc := location(fs, tok.Span)

	switch {
	case isNullArg(stream, arg, res, argTok):
		return FunctionCall{CalleeID: getFunctionId(calleeName), ArgIndex: 0, Value: CallValue{Kind: CallNull}, Location: loc}, true

	case arg.Kind == ctoken.Amp && arg.AstOperand1 != ctoken.NoTokenID:
		inner := stream.At(arg.AstOperand1)
		if inner.Variable == ctoken.NoVariableID {
			return FunctionCall{}, false
		}
		v := stream.VariableOf(arg.AstOperand1)
		if !res.At(v.DeclTok).Contains(vflattice.Uninit) {
			return FunctionCall{}, false
		}
		return FunctionCall{CalleeID: getFunctionId(calleeName), ArgIndex: 0, Value: CallValue{Kind: CallUninit}, Location: loc}, true

	case arg.Variable != ctoken.NoVariableID && res.At(argTok).Contains(vflattice.Uninit):
		return FunctionCall{CalleeID: getFunctionId(calleeName), ArgIndex: 0, Value: CallValue{Kind: CallUninit}, Location: loc}, true

	default:
		if kv, ok := res.At(argTok).Find(vflattice.Known); ok {
			return FunctionCall{CalleeID: getFunctionId(calleeName), ArgIndex: 0, Value: CallValue{Kind: CallKnown, Known: kv.Low}, Location: loc}, true
		}
	}
	return FunctionCall{}, false
}

func isNullArg(stream *ctoken.Stream, arg ctoken.Token, res *valueflow.Result, argTok ctoken.TokenID) bool {
	if arg.Kind == ctoken.IntLit && arg.Text == "0" {
		return true
	}
	if arg.Kind == ctoken.Ident && arg.Text == "NULL" && arg.Variable == ctoken.NoVariableID {
		return true
	}
	return arg.Variable != ctoken.NoVariableID && res.At(argTok).Contains(vflattice.Null)
}
