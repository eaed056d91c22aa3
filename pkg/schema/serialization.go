package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the schema as a map of type strings.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw, err := s.typeMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a map of type strings.
func (s *Schema) UnmarshalJSON(data []byte) error {
	if s == nil {
		return fmt.Errorf("schema: UnmarshalJSON on nil pointer")
	}
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var rawAny map[string]any
	if err := json.Unmarshal(data, &rawAny); err != nil {
		return err
	}
	return s.fromAny(rawAny)
}

// UnmarshalYAML decodes a mapping of type strings.
func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	var rawAny map[string]any
	if err := node.Decode(&rawAny); err != nil {
		return err
	}
	return s.fromAny(rawAny)
}

func (s *Schema) fromAny(rawAny map[string]any) error {
	raw := make(map[string]string, len(rawAny))
	for key, value := range rawAny {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("field %s: expected string type, got %T", key, value)
		}
		raw[key] = str
	}

	parsed, err := ParseTypeMap(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Schema) typeMap() (map[string]string, error) {
	raw := make(map[string]string, len(s))
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
		raw[key] = typ.Name()
	}
	return raw, nil
}
