package tddf

import (
	"fmt"
	"slices"
)

// Coercion converts the trimmed text of a field into a typed value.
type Coercion int

const (
	CoerceString Coercion = iota
	CoerceNumeric
	CoerceDate
)

type FieldSpec struct {
	Name     string
	Start    int
	Length   int
	Coercion Coercion
	Scale    int
	Layout   DateLayout
}

func (f FieldSpec) end() int {
	return f.Start + f.Length
}

// Schema is the field layout of one record type.
type Schema struct {
	Code   string
	Name   string
	Fields []FieldSpec
}

// MustSchema builds a schema and panics if the layout is malformed: fields
// must have unique names, positive lengths and must not overlap.
func MustSchema(code, name string, fields ...FieldSpec) *Schema {
	s := &Schema{Code: code, Name: name, Fields: slices.Clone(fields)}
	if err := s.validate(); err != nil {
		panic(fmt.Sprintf("tddf: schema %s: %v", code, err))
	}

	return s
}

func (s *Schema) validate() error {
	slices.SortFunc(s.Fields, func(a, b FieldSpec) int { return a.Start - b.Start })

	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if f.Start < 0 || f.Length <= 0 {
			return fmt.Errorf("field %q has invalid bounds [%d,+%d)", f.Name, f.Start, f.Length)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		if i > 0 && s.Fields[i-1].end() > f.Start {
			return fmt.Errorf("field %q overlaps %q", f.Name, s.Fields[i-1].Name)
		}
		if f.Coercion == CoerceDate && f.Length != 8 {
			return fmt.Errorf("date field %q must be 8 characters", f.Name)
		}
	}

	return nil
}

// Width is the minimum line length that carries every field.
func (s *Schema) Width() int {
	if len(s.Fields) == 0 {
		return 0
	}

	return s.Fields[len(s.Fields)-1].end()
}

func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return FieldSpec{}, false
}
