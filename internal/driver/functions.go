package driver

import "ctucheck/internal/ctoken"

// FunctionRange names one function body discovered in a Stream: [Body, End)
// is exactly the half-open range valueflow.Engine.Run expects.
type FunctionRange struct {
	Name string
	Body ctoken.TokenID
	End  ctoken.TokenID
}

// FindFunctions scans stream for function bodies. A function body is
// recognized as an LBrace token whose enclosing scope is ScopeFunction and
// which carries a matching Link to its closing brace — function boundaries
// are an ordinary token/scope property here, not a separate declaration
// node.
func FindFunctions(stream *ctoken.Stream) []FunctionRange {
	var out []FunctionRange
	seen := make(map[ctoken.ScopeID]bool)
	for id := ctoken.TokenID(1); int(id) <= stream.Len(); id++ {
		tok := stream.At(id)
		if tok.Kind != ctoken.LBrace || tok.Link == ctoken.NoTokenID {
			continue
		}
		scope := stream.ScopeOf(id)
		if scope.Kind != ctoken.ScopeFunction || seen[scope.ID] {
			continue
		}
		seen[scope.ID] = true
		out = append(out, FunctionRange{
			Name: scope.FuncName,
			Body: stream.Next(id),
			End:  tok.Link,
		})
	}
	return out
}
