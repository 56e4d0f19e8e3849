package driver

import (
	"context"
	"fmt"

	"ctucheck/internal/checks/nullpointer"
	"ctucheck/internal/checks/uninitvar"
	"ctucheck/internal/ctoken"
	"ctucheck/internal/diag"
	"ctucheck/internal/libfacts"
	"ctucheck/internal/valueflow"
)

// AnalyzeFunction runs the value-flow engine over one function body and
// feeds the result to every enabled check. Check order is fixed (uninit
// before null) so Bag.Sort's stable tie-breaking stays deterministic run to
// run. ctx is checked before the engine pass and again before the second
// check, so a cancelled run doesn't keep spending work on a function whose
// caller has already given up. The only error AnalyzeFunction returns is
// ctx's — an engine panic is caught and reported as an InternalError
// diagnostic instead of propagating, so one malformed function doesn't cost
// every other function's diagnostics in the same unit.
func AnalyzeFunction(ctx context.Context, stream *ctoken.Stream, fn FunctionRange, facts *libfacts.Table, opts Options, bag *diag.Bag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rep := diag.BagReporter{Bag: bag}

	res, err := runEngineRecovered(stream, fn, facts, opts)
	if err != nil {
		rep.Report(diag.NewError(diag.InternalError, stream.At(fn.Body).Span, err.Error()))
		return nil
	}

	if opts.checkEnabled("uninitvar") {
		uninitvar.Run(stream, res, fn.Body, fn.End, rep)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if opts.checkEnabled("nullpointer") {
		nullpointer.Run(stream, res, fn.Body, fn.End, facts, rep)
	}
	return nil
}

// runEngineRecovered runs Engine.RunFunction, converting a panic into an
// error rather than letting it unwind out of AnalyzeFunction.
func runEngineRecovered(stream *ctoken.Stream, fn FunctionRange, facts *libfacts.Table, opts Options) (res *valueflow.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzing %s: %v", fn.Name, r)
		}
	}()
	res = valueflow.NewEngine(stream, facts, opts.valueflowOptions()).RunFunction(fn.Body, fn.End)
	return res, nil
}

// AnalyzeUnit runs every function discovered in stream and returns the
// accumulated, sorted diagnostics for that translation unit. ctx is checked
// between functions (on top of AnalyzeFunction's own checks), so a
// cancelled run stops before starting any function it hasn't already begun.
func AnalyzeUnit(ctx context.Context, stream *ctoken.Stream, facts *libfacts.Table, opts Options) (*diag.Bag, error) {
	bag := diag.NewBag(opts.MaxDiagnostics)
	for _, fn := range FindFunctions(stream) {
		if err := AnalyzeFunction(ctx, stream, fn, facts, opts, bag); err != nil {
			return bag, err
		}
	}
	bag.Sort()
	return bag, nil
}
