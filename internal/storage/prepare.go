package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/norahq/nora/internal/calculator"
)

// DateLayout is the wire format of TypeDate values.
const DateLayout = "2006-01-02"

// TimestampLayout is the stored form of TypeTimestamp values. The fraction is
// fixed width so timestamps order lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Prepared is a validated create payload. Fields holds every declared
// attribute (nil for unset optional ones) including derived values.
type Prepared struct {
	Fields   Fields
	Children []Fields
}

// PrepareCreate validates a create payload against the kind's schema, applies
// defaults, coerces values to their logical types and computes derived fields.
// Both adapters persist exactly what this returns.
func PrepareCreate(kind Kind, in Fields, now time.Time) (*Schema, *Prepared, error) {
	schema, err := Lookup(kind)
	if err != nil {
		return nil, nil, err
	}

	childName := ""
	if schema.Children != nil {
		childName = schema.Children.Name
	}
	for _, key := range sortedKeys(in) {
		if key == childName {
			continue
		}
		if err := checkWritable(schema, key); err != nil {
			return nil, nil, err
		}
	}

	out, err := prepareFields(schema.Fields, in)
	if err != nil {
		return nil, nil, err
	}

	var children []Fields
	if schema.Children != nil {
		children, err = prepareChildren(schema.Children, in[childName])
		if err != nil {
			return nil, nil, err
		}
		if len(children) < schema.Children.MinCount {
			return nil, nil, Validationf("%s requires at least %d %s", kind, schema.Children.MinCount, schema.Children.Name)
		}
	}

	out[FieldCreatedAt] = now.UTC().Format(TimestampLayout)
	if schema.Derive != nil {
		schema.Derive(out, children)
	}
	return schema, &Prepared{Fields: out, Children: children}, nil
}

// PrepareUpdate validates a partial update. Only the keys present in patch are
// returned; a nil value clears an optional field.
func PrepareUpdate(kind Kind, patch Fields) (*Schema, Fields, error) {
	schema, err := Lookup(kind)
	if err != nil {
		return nil, nil, err
	}

	out := make(Fields, len(patch))
	for _, key := range sortedKeys(patch) {
		if schema.Children != nil && key == schema.Children.Name {
			return nil, nil, Validationf("%s cannot be changed after the %s is created", key, strings.TrimSuffix(string(kind), "s"))
		}
		if err := checkWritable(schema, key); err != nil {
			return nil, nil, err
		}
		field, _ := schema.Field(key)
		if field.Immutable {
			return nil, nil, Validationf("%s cannot be changed", key)
		}

		value := patch[key]
		if value == nil || (field.Required && isBlank(field, value)) {
			if field.Required {
				return nil, nil, Validationf("%s cannot be cleared", key)
			}
			out[key] = nil
			continue
		}
		coerced, err := coerce(field, value)
		if err != nil {
			return nil, nil, err
		}
		out[key] = coerced
	}
	return schema, out, nil
}

// Normalize converts a record read back from an engine into the canonical value
// types (int64 for integers, []string for lists, child records as []Record) and
// fills absent attributes with nil, so that every adapter returns the same shape.
func Normalize(schema *Schema, raw map[string]any) Record {
	rec := make(Record, len(schema.Fields)+2)
	if id, ok := raw[FieldID]; ok {
		rec[FieldID] = fmt.Sprint(id)
	}
	for _, field := range schema.Fields {
		rec[field.Name] = normalizeValue(field, raw[field.Name])
	}
	if schema.Children != nil {
		items := []Record{}
		for _, child := range asMaps(raw[schema.Children.Name]) {
			item := make(Record, len(schema.Children.Fields))
			for _, field := range schema.Children.Fields {
				item[field.Name] = normalizeValue(field, child[field.Name])
			}
			items = append(items, item)
		}
		rec[schema.Children.Name] = items
	}
	return rec
}

func normalizeValue(field Field, v any) any {
	if v == nil {
		if field.Type == TypeStringList && field.Default != nil {
			return cloneDefault(field.Default)
		}
		return nil
	}
	coerced, err := coerce(field, v)
	if err != nil {
		return v
	}
	return coerced
}

func checkWritable(schema *Schema, key string) error {
	if key == FieldID {
		return Validationf("id is assigned by the store")
	}
	field, ok := schema.Field(key)
	if !ok {
		return Validationf("unknown field %q for %s", key, schema.Kind)
	}
	if field.Derived {
		return Validationf("%s is computed by the store", key)
	}
	return nil
}

func prepareFields(fields []Field, in map[string]any) (Fields, error) {
	out := make(Fields, len(fields)+1)
	var missing []string
	for _, field := range fields {
		if field.Derived {
			continue
		}
		value, present := in[field.Name]
		if !present || value == nil || (field.Required && isBlank(field, value)) {
			switch {
			case field.Default != nil:
				out[field.Name] = cloneDefault(field.Default)
			case field.Required:
				missing = append(missing, field.Name)
			default:
				out[field.Name] = nil
			}
			continue
		}
		coerced, err := coerce(field, value)
		if err != nil {
			return nil, err
		}
		out[field.Name] = coerced
	}
	if len(missing) > 0 {
		return nil, Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func prepareChildren(set *ChildSet, raw any) ([]Fields, error) {
	if raw == nil {
		return nil, nil
	}
	maps, ok := toMapSlice(raw)
	if !ok {
		return nil, Validationf("%s must be a list of objects", set.Name)
	}

	children := make([]Fields, 0, len(maps))
	for i, child := range maps {
		for _, key := range sortedKeys(child) {
			if _, ok := set.Field(key); !ok {
				return nil, Validationf("%s[%d]: unknown field %q", set.Name, i, key)
			}
		}
		prepared, err := prepareFields(set.Fields, child)
		if err != nil {
			return nil, Validationf("%s[%d]: %v", set.Name, i, err)
		}
		children = append(children, prepared)
	}
	return children, nil
}

func coerce(field Field, v any) (any, error) {
	switch field.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, typeError(field, v)
		}
		if len(field.Enum) > 0 && !contains(field.Enum, s) {
			return nil, Validationf("%s must be one of %s", field.Name, strings.Join(field.Enum, ", "))
		}
		return s, nil

	case TypeNumber:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, typeError(field, v)
		}
		return f, nil

	case TypeInteger:
		n, ok, exact := toInteger(v)
		if !ok {
			return nil, typeError(field, v)
		}
		if !exact || n > maxSafeInteger || n < -maxSafeInteger {
			return nil, Validationf("%s is out of range", field.Name)
		}
		return n, nil

	case TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		default:
			// Older documents stored flags as 0/1.
			f, ok := toFloat(v)
			if !ok || (f != 0 && f != 1) {
				return nil, typeError(field, v)
			}
			return f == 1, nil
		}

	case TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, typeError(field, v)
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return nil, Validationf("%s must be a date formatted YYYY-MM-DD", field.Name)
		}
		return s, nil

	case TypeTimestamp:
		switch t := v.(type) {
		case time.Time:
			return t.UTC().Format(TimestampLayout), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, Validationf("%s must be an RFC 3339 timestamp", field.Name)
			}
			return parsed.UTC().Format(TimestampLayout), nil
		default:
			return nil, typeError(field, v)
		}

	case TypeStringList:
		switch list := v.(type) {
		case []string:
			return append([]string{}, list...), nil
		case []any:
			out := make([]string, 0, len(list))
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, typeError(field, v)
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, typeError(field, v)
		}
	}
	return nil, typeError(field, v)
}

// maxSafeInteger is the largest integer every engine round-trips exactly.
// Document engines decode numbers as float64.
const maxSafeInteger = 1 << 53

// isBlank reports whether v is an empty or whitespace-only text value.
func isBlank(field Field, v any) bool {
	if field.Type != TypeString && field.Type != TypeDate {
		return false
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// toInteger converts v to an int64. ok is false when v is not a whole number;
// exact is false when it is whole but does not fit in an int64.
func toInteger(v any) (n int64, ok, exact bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true, true
	case int32:
		return int64(i), true, true
	case int64:
		return i, true, true
	case json.Number:
		if parsed, err := i.Int64(); err == nil {
			return parsed, true, true
		}
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false, false
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, true, false
	}
	return int64(f), true, true
}

func typeError(field Field, v any) error {
	return Validationf("%s must be a %s, got %T", field.Name, field.Type, v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toMapSlice(v any) ([]map[string]any, bool) {
	switch list := v.(type) {
	case []map[string]any:
		return list, true
	case []Fields:
		out := make([]map[string]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	case []Record:
		out := make([]map[string]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			m, ok := asMap(item)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	default:
		return nil, false
	}
}

func asMaps(v any) []map[string]any {
	maps, _ := toMapSlice(v)
	return maps
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fields:
		return m, true
	case Record:
		return m, true
	default:
		return nil, false
	}
}

func cloneDefault(v any) any {
	if list, ok := v.([]string); ok {
		return append([]string{}, list...)
	}
	return v
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deriveInvoiceTotal(fields Fields, children []Fields) {
	items := make([]calculator.LineItem, 0, len(children))
	for _, child := range children {
		quantity, _ := child["quantity"].(float64)
		unitPrice, _ := child["unit_price"].(float64)
		items = append(items, calculator.LineItem{Quantity: quantity, UnitPrice: unitPrice})
	}
	fields["total"] = calculator.InvoiceTotal(items)
}
