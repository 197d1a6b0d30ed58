package auth

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

// FieldKind is the coarse type expected for a schema field.
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldBool   FieldKind = "bool"
	FieldAny    FieldKind = "any"
)

// FieldSpec describes a single user schema field.
type FieldSpec struct {
	Name     string
	Kind     FieldKind
	Required bool
}

// SchemaDescriptor is the embedder supplied description of the user schema:
// an ordered field list the core validates incoming field sets against,
// without generating new types at runtime.
type SchemaDescriptor struct {
	fields []FieldSpec
	index  map[string]FieldSpec
}

// NewSchemaDescriptor builds a descriptor from an ordered field list.
func NewSchemaDescriptor(fields ...FieldSpec) *SchemaDescriptor {
	index := make(map[string]FieldSpec, len(fields))
	for _, f := range fields {
		index[f.Name] = f
	}
	return &SchemaDescriptor{fields: fields, index: index}
}

// Fields returns the descriptor's field list in declaration order.
func (s *SchemaDescriptor) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Has reports whether the schema declares the named field.
func (s *SchemaDescriptor) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// ValidateFields checks an incoming field set against the schema: every
// present field must be declared with a matching kind, and every required
// field must be present. The password field is exempt from the required
// check here since flows separate it from the record before storage.
func (s *SchemaDescriptor) ValidateFields(fields map[string]any) error {
	for name, value := range fields {
		spec, ok := s.index[name]
		if !ok {
			return errors.New(fmt.Sprintf("field %q is not in the user schema", name), errors.CategoryValidation)
		}
		if !kindMatches(spec.Kind, value) {
			return errors.New(fmt.Sprintf("field %q has the wrong type", name), errors.CategoryValidation).
				WithMetadata(map[string]any{"field": name, "expected": string(spec.Kind)})
		}
	}

	for _, spec := range s.fields {
		if !spec.Required || spec.Name == "password" {
			continue
		}
		if _, ok := fields[spec.Name]; !ok {
			return errors.New(fmt.Sprintf("required field %q is missing", spec.Name), errors.CategoryValidation)
		}
	}

	return nil
}

func kindMatches(kind FieldKind, value any) bool {
	if value == nil {
		return true
	}

	switch kind {
	case FieldString:
		_, ok := value.(string)
		return ok
	case FieldNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case FieldBool:
		_, ok := value.(bool)
		return ok
	default:
		return true
	}
}
