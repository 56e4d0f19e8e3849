package driver

import (
	"ctucheck/internal/ctu"
	"ctucheck/internal/diag"
	"ctucheck/internal/source"
	"ctucheck/internal/valueflow"
)

// BuildUnitSummary runs the value-flow engine over every function in u and
// extracts that unit's CTU summary. It re-runs the engine
// separately from AnalyzeUnit's pass — cppcheck's own "ctu info" dump is a
// phase distinct from single-TU checking, and the two may even run in
// different processes, so sharing a Result across them isn't assumed here.
func BuildUnitSummary(path string, fs *source.FileSet, u Unit, opts Options) *ctu.FileInfo {
	info := &ctu.FileInfo{Path: path}
	for _, fn := range FindFunctions(u.Stream) {
		res := valueflow.NewEngine(u.Stream, u.Facts, opts.valueflowOptions()).Run(fn.Body, fn.End)
		part := ctu.BuildFileInfo(path, fs, u.Stream, res, []ctu.FuncRange{{Name: fn.Name, First: fn.Body, End: fn.End}})
		info.Functions = append(info.Functions, part.Functions...)
	}
	return info
}

// BuildCTUSummaries runs BuildUnitSummary over every unit, the per-unit half
// of cross-translation-unit analysis. The caller serializes (ctu.Encode) and
// later joins these, possibly after shipping them across a process boundary
// — see JoinCTUSummaries.
func BuildCTUSummaries(units []Unit, fs *source.FileSet, opts Options) []*ctu.FileInfo {
	infos := make([]*ctu.FileInfo, len(units))
	for i, u := range units {
		infos[i] = BuildUnitSummary(u.Path, fs, u, opts)
	}
	return infos
}

// JoinCTUSummaries correlates summaries built by BuildCTUSummaries (or
// decoded via ctu.Decode) into cross-translation-unit diagnostics.
func JoinCTUSummaries(infos []*ctu.FileInfo, opts Options, fs *source.FileSet) *diag.Bag {
	return ctu.Join(infos, opts.CTUDepthBound, opts.MaxDiagnostics, fs)
}
