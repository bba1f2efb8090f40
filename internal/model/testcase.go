package model

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// TestCase holds one value per parameter, positionally aligned with the
// parameter list. Score is run-local and excluded from identity.
type TestCase struct {
	Values []TestValue `json:"values"`
	Score  float64     `json:"score"`
}

func NewTestCase(values ...TestValue) TestCase {
	return TestCase{Values: append([]TestValue(nil), values...)}
}

// Fingerprint identifies the value sequence. Two cases with equal values
// share a fingerprint regardless of score.
func (c TestCase) Fingerprint() string {
	parts := make([]string, len(c.Values))
	for i, value := range c.Values {
		parts[i] = value.Key()
	}
	digest := sha1.Sum([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(digest[:])
}

func (c TestCase) Equal(other TestCase) bool {
	if len(c.Values) != len(other.Values) {
		return false
	}
	for i := range c.Values {
		if !c.Values[i].Equal(other.Values[i]) {
			return false
		}
	}
	return true
}

// Clone copies the value slice so the clone can be mutated independently.
func (c TestCase) Clone() TestCase {
	return TestCase{Values: append([]TestValue(nil), c.Values...), Score: c.Score}
}

func (c TestCase) InvalidCount() int {
	count := 0
	for _, value := range c.Values {
		if value.Category.IsInvalid() {
			count++
		}
	}
	return count
}
