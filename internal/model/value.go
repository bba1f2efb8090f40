package model

import (
	"fmt"
	"reflect"
	"strings"
)

// Category classifies a test value relative to the domain it was drawn from.
type Category int

const (
	CategoryValid Category = iota
	CategoryBoundaryValid
	CategoryBoundaryInvalid
	CategoryInvalid
)

var categoryNames = [...]string{
	CategoryValid:           "valid",
	CategoryBoundaryValid:   "boundary_valid",
	CategoryBoundaryInvalid: "boundary_invalid",
	CategoryInvalid:         "invalid",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// IsInvalid reports whether the value is expected to be rejected by the system under test.
func (c Category) IsInvalid() bool {
	return c == CategoryInvalid || c == CategoryBoundaryInvalid
}

func ParseCategory(raw string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch normalized {
	case "valid":
		return CategoryValid, nil
	case "boundary_valid", "boundaryvalid":
		return CategoryBoundaryValid, nil
	case "boundary_invalid", "boundaryinvalid":
		return CategoryBoundaryInvalid, nil
	case "invalid":
		return CategoryInvalid, nil
	default:
		return 0, fmt.Errorf("unknown test value category: %q", raw)
	}
}

func (c Category) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(categoryNames) {
		return nil, fmt.Errorf("unknown test value category: %d", int(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TestValue is one concrete input for a parameter. Values are treated as
// immutable once they are part of a parameter domain.
type TestValue struct {
	Value                  any      `json:"value" yaml:"value"`
	Category               Category `json:"category" yaml:"category"`
	ExpectedInvalidMessage string   `json:"expected_invalid_message,omitempty" yaml:"expected_invalid_message,omitempty"`
}

// Equal compares values structurally; slice and array payloads compare element-wise.
func (v TestValue) Equal(other TestValue) bool {
	if v.Category != other.Category || v.ExpectedInvalidMessage != other.ExpectedInvalidMessage {
		return false
	}
	return reflect.DeepEqual(v.Value, other.Value)
}

// Key returns a canonical string for the value, stable across runs for the
// same payload, category and message.
func (v TestValue) Key() string {
	return fmt.Sprintf("%d|%q|%#v", int(v.Category), v.ExpectedInvalidMessage, v.Value)
}

func (v TestValue) String() string {
	return fmt.Sprintf("%v(%s)", v.Value, v.Category)
}

// Parameter is a named input with an ordered, pre-populated domain.
type Parameter struct {
	Name   string      `json:"name" yaml:"name" validate:"required"`
	Type   string      `json:"type,omitempty" yaml:"type,omitempty"`
	Domain []TestValue `json:"domain" yaml:"domain" validate:"min=1"`
}
