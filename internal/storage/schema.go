package storage

// FieldType is the logical type of an attribute, independent of engine.
type FieldType int

const (
	TypeString FieldType = iota
	TypeNumber
	TypeInteger
	TypeBool
	// TypeDate is a calendar date formatted YYYY-MM-DD. Dates compare lexically.
	TypeDate
	// TypeTimestamp is an RFC 3339 UTC timestamp.
	TypeTimestamp
	TypeStringList
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeInteger:
		return "integer"
	case TypeBool:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeStringList:
		return "string list"
	default:
		return "unknown"
	}
}

// Field describes one attribute of an entity.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	// Unique fields are enforced by the adapter at write time. Unique fields
	// are always immutable so adapters never have to move a unique claim.
	Unique bool
	// Immutable fields are set at creation and rejected in updates.
	Immutable bool
	// Derived fields are computed by the schema and never accepted from callers.
	Derived bool
	Default any
	Enum    []string
}

// ChildSet describes an ordered collection owned by its parent: embedded in the
// parent document by the document adapter, a separate table with a foreign key
// in the relational adapter.
type ChildSet struct {
	// Name is the attribute holding the children on the parent record.
	Name string
	// Table is the relational child table.
	Table string
	// ParentColumn references the parent id in the child table.
	ParentColumn string
	Fields       []Field
	MinCount     int
}

// Schema describes an entity kind.
type Schema struct {
	Kind   Kind
	Fields []Field
	// Children is nil for kinds without owned collections.
	Children *ChildSet
	// Derive computes derived fields from a fully prepared create payload.
	Derive func(fields Fields, children []Fields)
}

// Field returns the named field, if declared.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// UniqueFields returns the fields declared unique.
func (s *Schema) UniqueFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Unique {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the named child field, if declared.
func (c *ChildSet) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// InvoiceStatuses are the allowed invoice states.
var InvoiceStatuses = []string{"draft", "sent", "paid", "void"}

var registry = map[Kind]*Schema{
	KindUser: {
		Kind: KindUser,
		Fields: withCreatedAt(
			Field{Name: "username", Type: TypeString, Required: true, Unique: true, Immutable: true},
			Field{Name: "password", Type: TypeString, Required: true},
		),
	},
	KindContact: {
		Kind: KindContact,
		Fields: withCreatedAt(
			Field{Name: "full_name", Type: TypeString, Required: true},
			Field{Name: "email", Type: TypeString, Required: true},
			Field{Name: "company_name", Type: TypeString},
			Field{Name: "category", Type: TypeString},
			Field{Name: "language", Type: TypeString},
			Field{Name: "currency", Type: TypeString},
		),
	},
	KindInvoice: {
		Kind: KindInvoice,
		Fields: withCreatedAt(
			Field{Name: "contact_id", Type: TypeString},
			Field{Name: "number", Type: TypeString},
			Field{Name: "date", Type: TypeDate},
			Field{Name: "due_date", Type: TypeDate},
			Field{Name: "currency", Type: TypeString},
			Field{Name: "total", Type: TypeNumber, Derived: true},
			Field{Name: "status", Type: TypeString, Required: true, Default: "draft", Enum: InvoiceStatuses},
		),
		Children: &ChildSet{
			Name:         "items",
			Table:        "line_items",
			ParentColumn: "invoice_id",
			Fields: []Field{
				{Name: "description", Type: TypeString},
				{Name: "quantity", Type: TypeNumber, Required: true},
				{Name: "unit_price", Type: TypeNumber, Required: true},
				{Name: "taxes", Type: TypeStringList, Default: []string{}},
			},
			MinCount: 1,
		},
		Derive: deriveInvoiceTotal,
	},
	KindExpense: {
		Kind: KindExpense,
		Fields: withCreatedAt(
			Field{Name: "date", Type: TypeDate, Required: true},
			Field{Name: "category_id", Type: TypeString},
			Field{Name: "vendor_name", Type: TypeString},
			Field{Name: "amount", Type: TypeNumber, Default: 0.0},
			Field{Name: "currency", Type: TypeString},
			Field{Name: "tax_amount", Type: TypeNumber, Default: 0.0},
			Field{Name: "is_paid", Type: TypeBool, Default: false},
			Field{Name: "description", Type: TypeString},
		),
	},
	KindTimeEntry: {
		Kind: KindTimeEntry,
		Fields: withCreatedAt(
			Field{Name: "contact_id", Type: TypeString},
			Field{Name: "date", Type: TypeDate, Required: true},
			Field{Name: "hours", Type: TypeInteger, Default: int64(0)},
			Field{Name: "minutes", Type: TypeInteger, Default: int64(0)},
			Field{Name: "description", Type: TypeString},
		),
	},
}

func withCreatedAt(fields ...Field) []Field {
	return append(fields, Field{Name: FieldCreatedAt, Type: TypeTimestamp, Derived: true})
}
