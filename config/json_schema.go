package config

import (
	"errors"

	"github.com/invopop/jsonschema"
)

var (
	ErrGeneratedSchemaIsNil = errors.New("generated JSON Schema is nil")
)

// JSONSchema describes the config file. Field names follow the mapstructure
// tags so the schema matches config.yaml.
func JSONSchema() ([]byte, error) {
	r := &jsonschema.Reflector{FieldNameTag: "mapstructure"}
	schema := r.Reflect(&Config{})

	if schema == nil {
		return nil, ErrGeneratedSchemaIsNil
	}

	return schema.MarshalJSON()
}
