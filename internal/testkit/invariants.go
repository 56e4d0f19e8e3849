// Package testkit holds invariant-checking helpers shared by check, engine,
// and CTU tests: small structural assertions that packages would otherwise
// re-derive ad hoc in every _test.go file.
package testkit

import (
	"fmt"

	"ctucheck/internal/checks/nullpointer"
	"ctucheck/internal/ctoken"
	"ctucheck/internal/ctu"
	"ctucheck/internal/diag"
	"ctucheck/internal/source"
	"ctucheck/internal/valueflow"
	"ctucheck/internal/vflattice"
)

// FindTokenBySpan returns the id of the token whose span exactly matches
// span, scanning the whole arena. Diagnostics carry a span, not a token id,
// so invariant checks that need the underlying value set must recover the
// id this way.
func FindTokenBySpan(stream *ctoken.Stream, span source.Span) (ctoken.TokenID, bool) {
	for i := 1; i <= stream.Len(); i++ {
		id := ctoken.TokenID(i)
		if stream.At(id).Span == span {
			return id, true
		}
	}
	return ctoken.NoTokenID, false
}

// CheckUninitInvariant verifies that the diagnostic's primary-location token
// carries Uninit in its value set at the moment of the walk.
func CheckUninitInvariant(stream *ctoken.Stream, res *valueflow.Result, d diag.Diagnostic) error {
	id, ok := FindTokenBySpan(stream, d.Primary)
	if !ok {
		return fmt.Errorf("no token at diagnostic span %v", d.Primary)
	}
	if !res.Contains(id, vflattice.Uninit) {
		return fmt.Errorf("token at %v does not carry Uninit", d.Primary)
	}
	return nil
}

// CheckNullDerefInvariant verifies that the diagnostic's primary-location
// token is the pointer operand of a syntactic dereference (`*p` or
// `p->member`) and carries Null in its value set.
func CheckNullDerefInvariant(stream *ctoken.Stream, res *valueflow.Result, d diag.Diagnostic) error {
	id, ok := FindTokenBySpan(stream, d.Primary)
	if !ok {
		return fmt.Errorf("no token at diagnostic span %v", d.Primary)
	}
	if !res.Contains(id, vflattice.Null) {
		return fmt.Errorf("token at %v does not carry Null", d.Primary)
	}

	parent := stream.At(id).AstParent
	if parent == ctoken.NoTokenID {
		return fmt.Errorf("token at %v has no AST parent to test for deref position", d.Primary)
	}
	if operand, ok := nullpointer.DerefOperand(stream.At(parent)); !ok || operand != id {
		return fmt.Errorf("token at %v is not in a syntactic deref position", d.Primary)
	}
	return nil
}

// CheckDeterministic verifies that two renderings of identical input and
// settings are byte-identical.
func CheckDeterministic(first, second []byte) error {
	if len(first) != len(second) {
		return fmt.Errorf("outputs differ in length (%d vs %d)", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			return fmt.Errorf("outputs differ at byte %d", i)
		}
	}
	return nil
}

// CheckCTURoundTrip verifies that serializing a CTU summary and decoding it
// back yields a summary that joins to the same diagnostics as the original.
func CheckCTURoundTrip(info *ctu.FileInfo, fs *source.FileSet, depthBound, maxDiagnostics int) error {
	wire, err := ctu.Encode(info)
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}
	decoded, err := ctu.Decode(wire)
	if err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	before := ctu.Join([]*ctu.FileInfo{info}, depthBound, maxDiagnostics, fs)
	after := ctu.Join([]*ctu.FileInfo{decoded}, depthBound, maxDiagnostics, fs)
	if before.Len() != after.Len() {
		return fmt.Errorf("join produced %d diagnostics before round-trip, %d after", before.Len(), after.Len())
	}
	return nil
}

// CheckWideningBound verifies that no value set the engine stored has
// cardinality greater than bound+1 (the +1 covers the Top marker itself).
func CheckWideningBound(res *valueflow.Result, bound int) error {
	var violation error
	res.Visit(func(id ctoken.TokenID, vs vflattice.ValueSet) {
		if violation != nil {
			return
		}
		if vs.Len() > bound+1 {
			violation = fmt.Errorf("token %d has value set of cardinality %d, exceeds bound %d+1", id, vs.Len(), bound)
		}
	})
	return violation
}
