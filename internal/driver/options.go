package driver

import "ctucheck/internal/valueflow"

// Options controls both what the engine computes and which checks consume
// it — the engine-affecting subset of the overall settings surface
// (internal/settings owns the on-disk/CLI-flag form; Options is what
// actually reaches the engine and checks).
type Options struct {
	// Enabled maps a check's name ("uninitvar", "nullpointer") to whether it
	// runs. A nil map means every known check runs.
	Enabled map[string]bool

	Inconclusive  bool
	WideningBound int
	LoopBudget    int

	// CTUDepthBound bounds how many call hops JoinCTUSummaries forwards an
	// unsafe usage through nested calls before giving up;
	// <= 0 means the package default (2).
	CTUDepthBound int

	MaxDiagnostics int

	// Jobs bounds AnalyzeAll's concurrency; <= 0 means runtime.GOMAXPROCS(0).
	Jobs int
}

// DefaultOptions returns the default engine settings with every check
// enabled.
func DefaultOptions() Options {
	return Options{
		Inconclusive:   true,
		WideningBound:  valueflow.DefaultWideningBound,
		LoopBudget:     valueflow.DefaultLoopBudget,
		MaxDiagnostics: 10000,
	}
}

func (o Options) checkEnabled(name string) bool {
	if o.Enabled == nil {
		return true
	}
	return o.Enabled[name]
}

func (o Options) valueflowOptions() valueflow.Options {
	return valueflow.Options{
		WideningBound: o.WideningBound,
		LoopBudget:    o.LoopBudget,
		Inconclusive:  o.Inconclusive,
	}
}
