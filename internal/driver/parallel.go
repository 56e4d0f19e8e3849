package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ctucheck/internal/ctoken"
	"ctucheck/internal/diag"
	"ctucheck/internal/libfacts"
)

// Unit is one translation unit ready for analysis: a frozen token stream and
// the library facts visible to it.
type Unit struct {
	Path   string
	Stream *ctoken.Stream
	Facts  *libfacts.Table
}

// UnitResult pairs a Unit's diagnostics with its identity so callers (and a
// later CTU join pass) can trace them back to a source file.
type UnitResult struct {
	Path string
	Bag  *diag.Bag
}

// AnalyzeAll analyzes every unit concurrently, bounded by opts.Jobs (default
// runtime.GOMAXPROCS(0)), using a per-file errgroup worker pool with no
// module-graph or disk-cache stages — CTU joining across units happens
// afterward, in internal/ctu, not as part of this fan-out. Cancellation is
// checked between every function within a unit (AnalyzeUnit's own loop),
// not just once per goroutine, so a large unit can't run to completion
// after gctx is already done.
func AnalyzeAll(ctx context.Context, units []Unit, opts Options) ([]UnitResult, error) {
	if len(units) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]UnitResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(units)))

	for i, u := range units {
		g.Go(func() error {
			bag, err := AnalyzeUnit(gctx, u.Stream, u.Facts, opts)
			if err != nil {
				return err
			}
			results[i] = UnitResult{Path: u.Path, Bag: bag}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
