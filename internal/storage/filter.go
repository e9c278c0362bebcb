package storage

import (
	"strings"
)

// Filter selects records in List. All conditions must hold.
type Filter struct {
	// Equal maps a field to its required value. A nil value matches records
	// where the field is unset.
	Equal map[string]any
	// Between holds inclusive ranges. A nil bound leaves that side open.
	Between []Range
}

// Range is an inclusive [From, To] condition on one field.
type Range struct {
	Field string
	From  any
	To    any
}

// Where starts a filter with one equality condition.
func Where(field string, value any) *Filter {
	return (&Filter{}).Eq(field, value)
}

// Within starts a filter with one inclusive range condition.
func Within(field string, from, to any) *Filter {
	return (&Filter{}).In(field, from, to)
}

// Eq adds an equality condition.
func (f *Filter) Eq(field string, value any) *Filter {
	if f.Equal == nil {
		f.Equal = make(map[string]any)
	}
	f.Equal[field] = value
	return f
}

// In adds an inclusive range condition.
func (f *Filter) In(field string, from, to any) *Filter {
	f.Between = append(f.Between, Range{Field: field, From: from, To: to})
	return f
}

// IsEmpty reports whether the filter has no conditions.
func (f *Filter) IsEmpty() bool {
	return f == nil || (len(f.Equal) == 0 && len(f.Between) == 0)
}

// Match evaluates the filter against a normalized record.
func (f *Filter) Match(rec Record) bool {
	if f.IsEmpty() {
		return true
	}
	for field, want := range f.Equal {
		got := rec[field]
		if (want == nil) != (got == nil) {
			return false
		}
		if want == nil {
			continue
		}
		if c, ok := compare(got, want); !ok || c != 0 {
			return false
		}
	}
	for _, r := range f.Between {
		got := rec[r.Field]
		if got == nil {
			return false
		}
		if r.From != nil {
			if c, ok := compare(got, r.From); !ok || c < 0 {
				return false
			}
		}
		if r.To != nil {
			if c, ok := compare(got, r.To); !ok || c > 0 {
				return false
			}
		}
	}
	return true
}

// ValidateFilter checks every condition against the schema and returns a copy
// with values coerced to the field types. A nil filter stays nil.
func ValidateFilter(schema *Schema, f *Filter) (*Filter, error) {
	if f.IsEmpty() {
		return nil, nil
	}

	out := &Filter{}
	for _, name := range sortedKeys(f.Equal) {
		field, err := filterField(schema, name)
		if err != nil {
			return nil, err
		}
		value := f.Equal[name]
		if value != nil {
			if value, err = coerce(field, value); err != nil {
				return nil, err
			}
		}
		out.Eq(name, value)
	}
	for _, r := range f.Between {
		field, err := filterField(schema, r.Field)
		if err != nil {
			return nil, err
		}
		if field.Type == TypeBool {
			return nil, Validationf("range filter is not supported on %s", r.Field)
		}
		if r.From == nil && r.To == nil {
			return nil, Validationf("range filter on %s needs at least one bound", r.Field)
		}
		from, to := r.From, r.To
		if from != nil {
			if from, err = coerce(field, from); err != nil {
				return nil, err
			}
		}
		if to != nil {
			if to, err = coerce(field, to); err != nil {
				return nil, err
			}
		}
		if from != nil && to != nil {
			if c, _ := compare(from, to); c > 0 {
				return nil, Validationf("range filter on %s: lower bound is after upper bound", r.Field)
			}
		}
		out.In(r.Field, from, to)
	}
	return out, nil
}

func filterField(schema *Schema, name string) (Field, error) {
	field, ok := schema.Field(name)
	if !ok {
		return Field{}, Validationf("cannot filter %s on unknown field %q", schema.Kind, name)
	}
	if field.Type == TypeStringList {
		return Field{}, Validationf("cannot filter on list field %s", name)
	}
	return field, nil
}

// compare orders two scalar values of the same logical type.
func compare(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		default:
			return 1, true
		}
	}
	af, ok := toFloat(a)
	if !ok {
		return 0, false
	}
	bf, ok := toFloat(b)
	if !ok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}
