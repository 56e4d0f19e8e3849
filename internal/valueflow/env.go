package valueflow

import (
	"ctucheck/internal/ctoken"
	"ctucheck/internal/vflattice"
)

// env is the per-variable value-set state threaded through a block walk. It
// is copied (never aliased) across branches so that refining one branch's
// copy cannot leak into a sibling branch.
type env map[ctoken.VariableID]vflattice.ValueSet

func newEnv() env { return make(env) }

func (e env) clone() env {
	out := make(env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func (e env) get(id ctoken.VariableID) (vflattice.ValueSet, bool) {
	vs, ok := e[id]
	return vs, ok
}

func (e env) set(id ctoken.VariableID, vs vflattice.ValueSet) {
	if id == ctoken.NoVariableID {
		return
	}
	e[id] = vs
}

// joinEnv merges two environments taken from sibling branches (if/else,
// switch arms, loop entry/exit) into the value each variable holds after
// the branches converge.
func joinEnv(bound int, a, b env) env {
	out := make(env, len(a)+len(b))
	seen := make(map[ctoken.VariableID]bool)
	for id, av := range a {
		if bv, ok := b[id]; ok {
			out[id] = vflattice.Join(bound, av, bv)
		} else {
			out[id] = av
		}
		seen[id] = true
	}
	for id, bv := range b {
		if !seen[id] {
			out[id] = bv
		}
	}
	return out
}

// equalEnv reports whether two environments hold the same values for every
// tracked variable — used to detect a loop fixed point before the budget is
// exhausted.
func equalEnv(a, b env) bool {
	if len(a) != len(b) {
		return false
	}
	for id, av := range a {
		bv, ok := b[id]
		if !ok {
			return false
		}
		if av.IsTop() != bv.IsTop() {
			return false
		}
		if av.IsTop() {
			continue
		}
		avVals, bvVals := av.Values(), bv.Values()
		if len(avVals) != len(bvVals) {
			return false
		}
		for i := range avVals {
			if !avVals[i].Equal(bvVals[i]) {
				return false
			}
		}
	}
	return true
}
