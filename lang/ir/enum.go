package ir

// Enum is a mutable enum tag object: a name, its underlying integer kind, a
// defined flag (supporting forward declaration like Comp), and the ordered
// list of its members.
type Enum struct {
	Name       string
	Underlying IKind
	IsDefined  bool
	Items      []EnumItemID
}

// EnumItem is one (name, value) member of an Enum.
type EnumItem struct {
	Name  string
	Value int64
}

// Typedef pairs a name with a type. Typedefs are immutable once created:
// there is no setter, only Typedefs.New.
type Typedef struct {
	Name string
	Type TypeID
}
