package extensions

import (
	"math"
	"testing"

	"github.com/guregu/null/v6"
)

func AssertAreEqual[T comparable](t *testing.T, name string, expected T, actual T) {
	t.Helper()
	if expected != actual {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual)
	}
}

func AssertNillability[T comparable](t *testing.T, name string, expected bool, actual *T) {
	t.Helper()
	if (actual == nil) != expected {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, (actual == nil))
	}
}

// AssertFloat compares a nullable cell against an expected value within 1e-9.
func AssertFloat(t *testing.T, name string, expected float64, actual null.Float) {
	t.Helper()
	if !actual.Valid {
		t.Fatalf("value mismatch for %s, expected %v, got null", name, expected)
	}
	if math.Abs(expected-actual.Float64) > 1e-9 {
		t.Fatalf("value mismatch for %s, expected %v, got %v", name, expected, actual.Float64)
	}
}

// AssertNull fails when the cell holds a value.
func AssertNull(t *testing.T, name string, actual null.Float) {
	t.Helper()
	if actual.Valid {
		t.Fatalf("value mismatch for %s, expected null, got %v", name, actual.Float64)
	}
}
