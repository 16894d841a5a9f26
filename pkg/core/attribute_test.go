package core_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/core"
)

func TestAttributes_RoundTrip(t *testing.T) {
	attrs := []core.Attribute{
		{ID: "at1", Kind: "label", Name: "archived", Position: 10},
		{ID: "at2", Kind: "relation", Name: "template", Value: "evnnmvHTCgIn", Position: 20, Inheritable: true},
		{ID: "at3", Kind: "label", Name: "color", Value: "#ff0000", Position: 30},
	}

	data, err := core.MarshalAttributes(attrs)
	if err != nil {
		t.Fatalf("MarshalAttributes failed: %v", err)
	}

	parsed, err := core.UnmarshalAttributes(data)
	if err != nil {
		t.Fatalf("UnmarshalAttributes failed: %v", err)
	}

	if len(parsed) != len(attrs) {
		t.Fatalf("expected %d attributes, got %d", len(attrs), len(parsed))
	}
	for i := range attrs {
		if parsed[i] != attrs[i] {
			t.Errorf("attribute %d: expected %+v, got %+v", i, attrs[i], parsed[i])
		}
	}
}

func TestAttributes_EmptyValueOmitted(t *testing.T) {
	data, err := core.MarshalAttributes([]core.Attribute{
		{ID: "at1", Kind: "label", Name: "archived"},
	})
	if err != nil {
		t.Fatalf("MarshalAttributes failed: %v", err)
	}

	if strings.Contains(string(data), "value:") {
		t.Errorf("expected empty value to be omitted, got:\n%s", data)
	}
}

func TestAttribute_IsLabel(t *testing.T) {
	tests := []struct {
		attr core.Attribute
		name string
		want bool
	}{
		{core.Attribute{Kind: "label", Name: "arborNoSync"}, "arborNoSync", true},
		{core.Attribute{Kind: "relation", Name: "arborNoSync"}, "arborNoSync", false},
		{core.Attribute{Kind: "label", Name: "archived"}, "arborNoSync", false},
		{core.Attribute{Kind: "label", Name: "arbornosync"}, "arborNoSync", false},
	}

	for _, tt := range tests {
		if got := tt.attr.IsLabel(tt.name); got != tt.want {
			t.Errorf("IsLabel(%q) on %+v = %v, want %v", tt.name, tt.attr, got, tt.want)
		}
	}
}
