// Package secrets implements in-memory secret storage with zeroization on
// teardown, plus the env/file injection surfaces sandboxes consume.
package secrets

import (
	"log/slog"
	"strconv"
)

// Value holds a secret's raw bytes. Its Debug/Log representations never
// reveal the contents; Expose is the only operation that does. Close
// overwrites the backing bytes with zeros and is idempotent.
type Value struct {
	inner []byte
}

// NewValue wraps s as a secret value.
func NewValue(s string) *Value {
	return &Value{inner: []byte(s)}
}

// Expose returns the raw secret value. Prefer the injection surfaces
// (env_injections / file_injections) over calling this directly.
func (v *Value) Expose() string {
	return string(v.inner)
}

// ExposeBytes returns a copy of the raw secret bytes. Unlike Expose, the
// returned slice can be zeroed by the caller once consumed — callers that
// need to scrub their own copy of the secret (e.g. file-injection staging)
// should use this instead of converting Expose's string back to []byte,
// which Go's string immutability would make unzeroable.
func (v *Value) ExposeBytes() []byte {
	out := make([]byte, len(v.inner))
	copy(out, v.inner)
	return out
}

// Len returns the secret's length without exposing its contents.
func (v *Value) Len() int {
	return len(v.inner)
}

// IsEmpty reports whether the secret value is empty.
func (v *Value) IsEmpty() bool {
	return len(v.inner) == 0
}

// Close zeroes the backing bytes. Safe to call more than once.
func (v *Value) Close() {
	for i := range v.inner {
		v.inner[i] = 0
	}
	v.inner = v.inner[:0]
}

// GoString implements fmt.GoStringer so that %#v never leaks the value.
func (v *Value) GoString() string {
	return v.String()
}

// String implements fmt.Stringer; used transitively by %v and %s.
func (v *Value) String() string {
	return "secrets.Value{inner: \"[REDACTED]\", len: " + strconv.Itoa(len(v.inner)) + "}"
}

// LogValue implements slog.LogValuer so structured logging of a Value (or a
// struct embedding one) can never render the real bytes.
func (v *Value) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("value", "[REDACTED]"),
		slog.Int("len", len(v.inner)),
	)
}
