package ai

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the type of a schema node.
type Kind string

const (
	KindObject Kind = "object"
	KindArray  Kind = "array"
	KindString Kind = "string"
	KindNumber Kind = "number"
	// KindInteger is a number without a fractional part.
	KindInteger Kind = "integer"
)

// Schema is a declarative description of the JSON a stage expects from the
// generator. Backends translate it into their native structured-output format
// and Validate checks a parsed value against it.
type Schema struct {
	Kind        Kind
	Description string

	// object
	Properties map[string]*Schema
	Required   []string

	// array
	Items    *Schema
	MinItems *int
	MaxItems *int
	// OrString accepts a single string in place of an array of strings.
	OrString bool

	// string
	NonEmpty bool

	// number and integer
	Minimum *float64
	Maximum *float64
}

func Object(properties map[string]*Schema, required ...string) *Schema {
	return &Schema{Kind: KindObject, Properties: properties, Required: required}
}

func Array(items *Schema) *Schema {
	return &Schema{Kind: KindArray, Items: items}
}

func String() *Schema {
	return &Schema{Kind: KindString}
}

func Number() *Schema {
	return &Schema{Kind: KindNumber}
}

func Integer() *Schema {
	return &Schema{Kind: KindInteger}
}

// TextList is an array of strings that also tolerates a single newline or
// bullet separated string.
func TextList() *Schema {
	s := Array(String())
	s.OrString = true
	return s
}

// Len bounds the array length to [min, max].
func (s *Schema) Len(min, max int) *Schema {
	s.MinItems = &min
	s.MaxItems = &max
	return s
}

// Exactly fixes the array length.
func (s *Schema) Exactly(n int) *Schema {
	return s.Len(n, n)
}

// Between bounds a number or integer to [min, max].
func (s *Schema) Between(min, max float64) *Schema {
	s.Minimum = &min
	s.Maximum = &max
	return s
}

// NotEmpty requires a string with non-whitespace content.
func (s *Schema) NotEmpty() *Schema {
	s.NonEmpty = true
	return s
}

// Describe attaches a description forwarded to the generator.
func (s *Schema) Describe(description string) *Schema {
	s.Description = description
	return s
}

// PropertyNames returns the object property names with required ones first,
// each group sorted.
func (s *Schema) PropertyNames() []string {
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})
	return names
}

// JSONSchema renders s as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}

	out := map[string]any{}
	if s.Description != "" {
		out["description"] = s.Description
	}

	switch s.Kind {
	case KindObject:
		out["type"] = "object"
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.JSONSchema()
		}
		out["properties"] = props
		if len(s.Required) > 0 {
			out["required"] = append([]string(nil), s.Required...)
		}
		out["additionalProperties"] = false
	case KindArray:
		out["type"] = "array"
		out["items"] = s.Items.JSONSchema()
		if s.MinItems != nil {
			out["minItems"] = *s.MinItems
		}
		if s.MaxItems != nil {
			out["maxItems"] = *s.MaxItems
		}
	case KindString:
		out["type"] = "string"
		if s.NonEmpty {
			out["minLength"] = 1
		}
	case KindNumber, KindInteger:
		out["type"] = string(s.Kind)
		if s.Minimum != nil {
			out["minimum"] = *s.Minimum
		}
		if s.Maximum != nil {
			out["maximum"] = *s.Maximum
		}
	}

	return out
}

// Validate checks the shape of a value produced by encoding/json against s.
// All problems are reported together in a *SchemaViolation.
func (s *Schema) Validate(value any) error {
	v := &validator{}
	v.check("$", s, value)
	if len(v.problems) == 0 {
		return nil
	}
	return &SchemaViolation{Problems: v.problems}
}

// SchemaViolation lists every shape problem found in a generated value.
type SchemaViolation struct {
	Problems []string
}

func (e *SchemaViolation) Error() string {
	return "schema violation: " + strings.Join(e.Problems, "; ")
}

func (e *SchemaViolation) Unwrap() error {
	return ErrSchema
}

type validator struct {
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) check(path string, s *Schema, value any) {
	if s == nil {
		return
	}

	switch s.Kind {
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			v.addf("%s: expected object, got %s", path, typeName(value))
			return
		}
		for _, name := range s.Required {
			if val, present := obj[name]; !present || val == nil {
				v.addf("%s.%s: required field is missing", path, name)
			}
		}
		for _, name := range s.PropertyNames() {
			val, present := obj[name]
			if !present || val == nil {
				continue
			}
			v.check(path+"."+name, s.Properties[name], val)
		}
	case KindArray:
		if s.OrString {
			if _, ok := value.(string); ok {
				return
			}
		}
		items, ok := value.([]any)
		if !ok {
			v.addf("%s: expected array, got %s", path, typeName(value))
			return
		}
		if s.MinItems != nil && len(items) < *s.MinItems {
			v.addf("%s: expected at least %d items, got %d", path, *s.MinItems, len(items))
		}
		if s.MaxItems != nil && len(items) > *s.MaxItems {
			v.addf("%s: expected at most %d items, got %d", path, *s.MaxItems, len(items))
		}
		for i, item := range items {
			v.check(fmt.Sprintf("%s[%d]", path, i), s.Items, item)
		}
	case KindString:
		str, ok := value.(string)
		if !ok {
			v.addf("%s: expected string, got %s", path, typeName(value))
			return
		}
		if s.NonEmpty && strings.TrimSpace(str) == "" {
			v.addf("%s: must not be empty", path)
		}
	case KindNumber, KindInteger:
		num, ok := toNumber(value)
		if !ok {
			v.addf("%s: expected %s, got %s", path, s.Kind, typeName(value))
			return
		}
		if s.Kind == KindInteger && num != math.Trunc(num) {
			v.addf("%s: %v is not an integer", path, num)
		}
		if s.Minimum != nil && num < *s.Minimum {
			v.addf("%s: %v is below minimum %v", path, num, *s.Minimum)
		}
		if s.Maximum != nil && num > *s.Maximum {
			v.addf("%s: %v is above maximum %v", path, num, *s.Maximum)
		}
	}
}

// toNumber accepts JSON numbers and numeric strings, which generators
// occasionally emit for scores.
func toNumber(value any) (float64, bool) {
	switch val := value.(type) {
	case float64:
		return val, !math.IsNaN(val)
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64, int:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", value)
	}
}
