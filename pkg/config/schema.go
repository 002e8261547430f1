package config

import (
	"fmt"

	"github.com/aliciabus/alicia/pkg/errs"
)

// FieldType is the lightweight type tag a Schema field checks against.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldBool   FieldType = "bool"
	FieldObject FieldType = "object"
)

// Field describes one schema-checked key.
type Field struct {
	Type     FieldType
	Required bool
}

// Schema is a required-keys-plus-type-tags validator — enough to reject
// malformed config without a full JSON Schema implementation.
type Schema struct {
	Fields map[string]Field
}

// Validate checks patch against every declared field: a present key
// must match its declared type, and a required key must be present.
func (s *Schema) Validate(patch map[string]any) error {
	for key, field := range s.Fields {
		value, present := patch[key]
		if !present {
			if field.Required {
				return errs.New(errs.KindValidation, fmt.Sprintf("missing required field %q", key))
			}
			continue
		}
		if err := checkType(key, value, field.Type); err != nil {
			return err
		}
	}
	return nil
}

func checkType(key string, value any, fieldType FieldType) error {
	ok := false
	switch fieldType {
	case FieldString:
		_, ok = value.(string)
	case FieldInt:
		switch value.(type) {
		case int, int32, int64, float64:
			ok = true
		}
	case FieldFloat:
		switch value.(type) {
		case float32, float64:
			ok = true
		}
	case FieldBool:
		_, ok = value.(bool)
	case FieldObject:
		_, ok = value.(map[string]any)
	default:
		ok = true
	}
	if !ok {
		return errs.New(errs.KindValidation, fmt.Sprintf("field %q expected type %s", key, fieldType))
	}
	return nil
}
