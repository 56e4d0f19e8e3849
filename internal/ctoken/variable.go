package ctoken

// VariableID is a program-wide identity: two Token references to the same
// declaration resolve to the same Variable identity.
type VariableID uint32

// NoVariableID marks an unresolved identifier reference.
const NoVariableID VariableID = 0

// Storage classifies a variable's storage duration.
type Storage uint8

const (
	StorageAuto Storage = iota
	StorageStatic
	StorageThreadLocal
	StorageExtern
)

// Variable is a unique, program-wide declaration identity.
type Variable struct {
	ID         VariableID
	Name       string
	Type       TypeID
	Storage    Storage
	IsConst    bool
	IsParam    bool
	ParamIndex int // valid when IsParam
	// Members holds, for aggregate types, the ordered list of named member
	// variables, each itself addressable as a leaf for uninit tracking
	//.
	Members []VariableID
	DeclTok TokenID
}

// VariableTable is an arena of Variable identities shared by one Stream.
type VariableTable struct {
	vars []Variable
}

// NewVariableTable creates an empty variable table.
func NewVariableTable() *VariableTable {
	return &VariableTable{vars: make([]Variable, 1, 64)} // index 0 reserved
}

// Declare registers a new variable and returns its VariableID.
func (vt *VariableTable) Declare(v Variable) VariableID {
	id := VariableID(len(vt.vars))
	v.ID = id
	vt.vars = append(vt.vars, v)
	return id
}

// Get returns the Variable for id, or the zero Variable if unresolved.
func (vt *VariableTable) Get(id VariableID) Variable {
	if id == NoVariableID || int(id) >= len(vt.vars) {
		return Variable{}
	}
	return vt.vars[id]
}

// SetMembers attaches member variables to an aggregate variable.
func (vt *VariableTable) SetMembers(id VariableID, members []VariableID) {
	if id == NoVariableID || int(id) >= len(vt.vars) {
		return
	}
	vt.vars[id].Members = members
}

// Len returns the number of declared variables (excluding the reserved slot).
func (vt *VariableTable) Len() int { return len(vt.vars) - 1 }
