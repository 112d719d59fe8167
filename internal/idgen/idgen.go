// Package idgen provides the ID and time services consumed by every other
// core package: UUID v4 generation and a monotonic Unix-second clock.
package idgen

import (
	"time"

	"github.com/google/uuid"
)

// New returns a new random (v4) UUID as its canonical string form.
func New() string {
	return uuid.New().String()
}

// Valid reports whether s parses as a UUID in any of the standard forms.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Clock supplies the current time as an integer Unix second. Abstracted
// behind an interface so callers can inject a fixed clock in tests.
type Clock interface {
	Now() int64
}

// SystemClock is a Clock backed by the real wall clock.
type SystemClock struct{}

// Now returns time.Now() truncated to whole Unix seconds.
func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// FixedClock is a Clock that always returns the same instant. Used in tests
// that need deterministic timestamps.
type FixedClock int64

// Now returns the fixed instant.
func (f FixedClock) Now() int64 {
	return int64(f)
}
