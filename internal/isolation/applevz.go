//go:build darwin

package isolation

import (
	"context"
)

// AppleVZBackend runs sandboxes as lightweight Virtualization.framework
// guests on Apple Silicon. The framework is exposed to Go only through
// Cgo bindings to VZVirtualMachine (no pure-Go client exists in the
// corpus this module was built from), so this backend reports itself
// unavailable rather than importing an unseen dependency; wiring a real
// binding is future work once one appears in the dependency set this
// module draws from.
type AppleVZBackend struct{}

// NewAppleVZBackend returns an Apple VZ backend stub.
func NewAppleVZBackend() *AppleVZBackend {
	return &AppleVZBackend{}
}

func (b *AppleVZBackend) Name() string { return "apple-vz" }

// Available is always false: see the type doc comment for why.
func (b *AppleVZBackend) Available() bool {
	return false
}

func (b *AppleVZBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	return SandboxResult{}, &Error{Kind: UnsupportedBackend, Message: "apple-vz backend has no wired virtualization binding"}
}
