// Package ctuio decodes a translation unit from a JSON wire form into a
// frozen ctoken.Stream. The real lexer/parser that turns C source text into
// tokens is a separate concern this module does not implement; this package
// is the stand-in ingestion boundary analyze/ctu-build/diagnose read units
// through, analogous to how cppcheck's checks consume an already-built
// Tokenizer result rather than raw source. There is no reference format to
// adapt here, so the shape below mirrors ctoken.Builder's own primitives
// (push a token, link a pair, wire an AST edge, declare a variable) as
// closely as a flat JSON document allows.
package ctuio

import (
	"encoding/json"
	"fmt"
	"io"

	"ctucheck/internal/ctoken"
	"ctucheck/internal/source"
)

// Scope is one lexical scope. Parent is 0 for the translation unit's global
// scope, or the 1-based index of an earlier entry in Unit.Scopes.
type Scope struct {
	Kind     string `json:"kind"` // "function" | "block" | "loop" | "switch"
	Parent   int    `json:"parent"`
	FuncName string `json:"func_name,omitempty"`
}

// Type is one resolved C type. Inner is 0 for "no inner type", or the
// 1-based index of an earlier entry in Unit.Types (pointee/element types
// must be declared before the pointer/array type that references them).
type Type struct {
	Kind      string `json:"kind"` // matches ctoken.TypeKind names, see parseTypeKind
	Unsigned  bool   `json:"unsigned,omitempty"`
	Inner     int    `json:"inner,omitempty"`
	ArrayLen  int64  `json:"array_len,omitempty"`
	Name      string `json:"name,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`
}

// Variable is one declared identity. Type and Members index into Unit.Types
// and Unit.Variables (1-based); DeclToken indexes into Unit.Tokens (also
// 1-based) and names the token this declaration binds to.
type Variable struct {
	Name       string `json:"name"`
	Type       int    `json:"type,omitempty"`
	Storage    string `json:"storage,omitempty"` // "auto" | "static" | "thread_local" | "extern"
	IsConst    bool   `json:"is_const,omitempty"`
	IsParam    bool   `json:"is_param,omitempty"`
	ParamIndex int    `json:"param_index,omitempty"`
	Members    []int  `json:"members,omitempty"`
	DeclToken  int    `json:"decl_token"`
}

// Token is one lexical token. Start/End are byte offsets into Unit.Source.
// Scope indexes Unit.Scopes (0 = global). Variable, when set, resolves this
// token to an already-declared identity (1-based index into Unit.Variables)
// — declaring tokens get their identity from Variable.DeclToken instead.
// Link and the Type index behave the same way (1-based, 0 = none).
type Token struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Start    uint32 `json:"start"`
	End      uint32 `json:"end"`
	Scope    int    `json:"scope"`
	Variable int    `json:"variable,omitempty"`
	Type     int    `json:"type,omitempty"`
	Link     int    `json:"link,omitempty"`
}

// AstEdge wires a token at Op to up to two operand tokens, both 1-based
// indices into Unit.Tokens (0 = no operand).
type AstEdge struct {
	Op       int `json:"op"`
	Operand1 int `json:"operand1,omitempty"`
	Operand2 int `json:"operand2,omitempty"`
}

// Unit is one translation unit's wire form: everything Build needs to drive
// a ctoken.Builder and produce a frozen Stream.
type Unit struct {
	Path      string     `json:"path"`
	Source    string     `json:"source"`
	Scopes    []Scope    `json:"scopes,omitempty"`
	Types     []Type     `json:"types,omitempty"`
	Variables []Variable `json:"variables,omitempty"`
	Tokens    []Token    `json:"tokens"`
	Ast       []AstEdge  `json:"ast,omitempty"`
}

// Decode parses one Unit from JSON.
func Decode(r io.Reader) (*Unit, error) {
	var u Unit
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&u); err != nil {
		return nil, fmt.Errorf("ctuio: decode unit: %w", err)
	}
	return &u, nil
}

func parseScopeKind(name string) (ctoken.ScopeKind, bool) {
	switch name {
	case "function":
		return ctoken.ScopeFunction, true
	case "block":
		return ctoken.ScopeBlock, true
	case "loop":
		return ctoken.ScopeLoop, true
	case "switch":
		return ctoken.ScopeSwitch, true
	default:
		return 0, false
	}
}

func parseStorage(name string) (ctoken.Storage, bool) {
	switch name {
	case "", "auto":
		return ctoken.StorageAuto, true
	case "static":
		return ctoken.StorageStatic, true
	case "thread_local":
		return ctoken.StorageThreadLocal, true
	case "extern":
		return ctoken.StorageExtern, true
	default:
		return 0, false
	}
}

func parseTypeKind(name string) (ctoken.TypeKind, bool) {
	switch name {
	case "unknown":
		return ctoken.TypeUnknown, true
	case "void":
		return ctoken.TypeVoid, true
	case "bool":
		return ctoken.TypeBool, true
	case "char":
		return ctoken.TypeChar, true
	case "short":
		return ctoken.TypeShort, true
	case "int":
		return ctoken.TypeInt, true
	case "long":
		return ctoken.TypeLong, true
	case "longlong":
		return ctoken.TypeLongLong, true
	case "float":
		return ctoken.TypeFloat, true
	case "double":
		return ctoken.TypeDouble, true
	case "pointer":
		return ctoken.TypePointer, true
	case "array":
		return ctoken.TypeArray, true
	case "struct":
		return ctoken.TypeStruct, true
	case "union":
		return ctoken.TypeUnion, true
	case "enum":
		return ctoken.TypeEnum, true
	case "funcpointer":
		return ctoken.TypeFuncPointer, true
	default:
		return 0, false
	}
}

// Build drives a ctoken.Builder from u and registers u.Source as a virtual
// file in fs, returning the frozen Stream and its first token.
func Build(u *Unit, fs *source.FileSet) (*ctoken.Stream, ctoken.TokenID, error) {
	fileID := fs.AddVirtual(u.Path, []byte(u.Source))
	b := ctoken.NewBuilder()

	scopeIDs := make([]ctoken.ScopeID, len(u.Scopes)+1)
	scopeIDs[0] = b.Stream().Scopes.Global()
	for i, s := range u.Scopes {
		if s.Parent < 0 || s.Parent > i {
			return nil, 0, fmt.Errorf("ctuio: scope %d: parent %d out of range", i+1, s.Parent)
		}
		kind, ok := parseScopeKind(s.Kind)
		if !ok {
			return nil, 0, fmt.Errorf("ctuio: scope %d: unknown kind %q", i+1, s.Kind)
		}
		scopeIDs[i+1] = b.PushScope(kind, scopeIDs[s.Parent], s.FuncName)
	}

	typeIDs := make([]ctoken.TypeID, len(u.Types)+1)
	typeIDs[0] = ctoken.NoTypeID
	for i, t := range u.Types {
		if t.Inner < 0 || t.Inner > i {
			return nil, 0, fmt.Errorf("ctuio: type %d: inner %d out of range", i+1, t.Inner)
		}
		kind, ok := parseTypeKind(t.Kind)
		if !ok {
			return nil, 0, fmt.Errorf("ctuio: type %d: unknown kind %q", i+1, t.Kind)
		}
		typeIDs[i+1] = b.AddType(ctoken.Type{
			Kind:      kind,
			Unsigned:  t.Unsigned,
			Inner:     typeIDs[t.Inner],
			ArrayLen:  t.ArrayLen,
			Name:      t.Name,
			SizeBytes: t.SizeBytes,
		})
	}

	for i, tok := range u.Tokens {
		if tok.Scope < 0 || tok.Scope > len(u.Scopes) {
			return nil, 0, fmt.Errorf("ctuio: token %d: scope %d out of range", i+1, tok.Scope)
		}
		kind, ok := ctoken.ParseKind(tok.Kind)
		if !ok {
			return nil, 0, fmt.Errorf("ctuio: token %d: unknown kind %q", i+1, tok.Kind)
		}
		span := source.Span{File: fileID, Start: tok.Start, End: tok.End}
		b.Push(kind, span, tok.Text, scopeIDs[tok.Scope])
	}

	tokenID := func(idx int) (ctoken.TokenID, error) {
		if idx < 0 || idx > len(u.Tokens) {
			return ctoken.NoTokenID, fmt.Errorf("ctuio: token index %d out of range", idx)
		}
		return ctoken.TokenID(idx), nil
	}

	variableIDs := make([]ctoken.VariableID, len(u.Variables)+1)
	for i, v := range u.Variables {
		if v.Type < 0 || v.Type > len(u.Types) {
			return nil, 0, fmt.Errorf("ctuio: variable %d: type %d out of range", i+1, v.Type)
		}
		storage, ok := parseStorage(v.Storage)
		if !ok {
			return nil, 0, fmt.Errorf("ctuio: variable %d: unknown storage %q", i+1, v.Storage)
		}
		declTok, err := tokenID(v.DeclToken)
		if err != nil {
			return nil, 0, fmt.Errorf("ctuio: variable %d: %w", i+1, err)
		}
		variableIDs[i+1] = b.DeclareVariable(declTok, ctoken.Variable{
			Name:       v.Name,
			Type:       typeIDs[v.Type],
			Storage:    storage,
			IsConst:    v.IsConst,
			IsParam:    v.IsParam,
			ParamIndex: v.ParamIndex,
		})
	}
	for i, v := range u.Variables {
		if len(v.Members) == 0 {
			continue
		}
		members := make([]ctoken.VariableID, len(v.Members))
		for j, m := range v.Members {
			if m < 1 || m > len(u.Variables) {
				return nil, 0, fmt.Errorf("ctuio: variable %d: member %d out of range", i+1, m)
			}
			members[j] = variableIDs[m]
		}
		b.Stream().Vars.SetMembers(variableIDs[i+1], members)
	}

	for i, tok := range u.Tokens {
		id, _ := tokenID(i + 1)
		if tok.Variable > 0 {
			if tok.Variable > len(u.Variables) {
				return nil, 0, fmt.Errorf("ctuio: token %d: variable %d out of range", i+1, tok.Variable)
			}
			b.SetVariable(id, variableIDs[tok.Variable])
		}
		if tok.Type > 0 {
			if tok.Type > len(u.Types) {
				return nil, 0, fmt.Errorf("ctuio: token %d: type %d out of range", i+1, tok.Type)
			}
			b.SetType(id, typeIDs[tok.Type])
		}
		if tok.Link > 0 {
			linked, err := tokenID(tok.Link)
			if err != nil {
				return nil, 0, fmt.Errorf("ctuio: token %d: %w", i+1, err)
			}
			b.Link(id, linked)
		}
	}

	for i, edge := range u.Ast {
		op, err := tokenID(edge.Op)
		if err != nil {
			return nil, 0, fmt.Errorf("ctuio: ast edge %d: %w", i+1, err)
		}
		operand1, err := tokenID(edge.Operand1)
		if err != nil {
			return nil, 0, fmt.Errorf("ctuio: ast edge %d: %w", i+1, err)
		}
		operand2, err := tokenID(edge.Operand2)
		if err != nil {
			return nil, 0, fmt.Errorf("ctuio: ast edge %d: %w", i+1, err)
		}
		b.SetAst(op, operand1, operand2)
	}

	return b.Finish(), b.First(), nil
}
