package testutil

import (
	"errors"
	"testing"
)

func TestAssertNoError(t *testing.T) {
	// Should not fail with nil error
	AssertNoError(t, nil)
}

func TestAssertError(t *testing.T) {
	// Should not fail with non-nil error
	AssertError(t, errors.New("test error"))
}

func TestAssertEqual(t *testing.T) {
	// Test with integers
	AssertEqual(t, 42, 42)

	// Test with strings
	AssertEqual(t, "hello", "hello")

	// Test with booleans
	AssertEqual(t, true, true)
}
