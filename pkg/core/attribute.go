package core

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Attribute is one typed metadata value attached to a note.
// It is an immutable value object: the remote replaces attributes wholesale,
// so difference equality is full structural equality.
type Attribute struct {
	ID          string `yaml:"id"`
	Kind        string `yaml:"type"`
	Name        string `yaml:"name"`
	Value       string `yaml:"value,omitempty"`
	Position    int    `yaml:"position"`
	Inheritable bool   `yaml:"inheritable"`
}

// IsLabel reports whether the attribute is a label with the given name.
func (a Attribute) IsLabel(name string) bool {
	return a.Kind == "label" && a.Name == name
}

// MarshalAttributes serializes an attribute list, preserving its order.
// The result round-trips through UnmarshalAttributes.
func MarshalAttributes(attrs []Attribute) ([]byte, error) {
	if len(attrs) == 0 {
		// A nil slice would serialize as "null"; the sidecar of a note
		// without attributes is an empty list.
		return []byte("[]\n"), nil
	}
	data, err := yaml.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize attributes: %w", err)
	}
	return data, nil
}

// UnmarshalAttributes parses an attribute list serialized by MarshalAttributes.
func UnmarshalAttributes(data []byte) ([]Attribute, error) {
	var attrs []Attribute
	if err := yaml.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to parse attributes: %w", err)
	}
	return attrs, nil
}
