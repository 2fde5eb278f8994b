//go:build !darwin

package isolation

import "context"

// AppleVZBackend is unavailable outside macOS.
type AppleVZBackend struct{}

// NewAppleVZBackend returns an Apple VZ backend stub.
func NewAppleVZBackend() *AppleVZBackend {
	return &AppleVZBackend{}
}

func (b *AppleVZBackend) Name() string { return "apple-vz" }

func (b *AppleVZBackend) Available() bool { return false }

func (b *AppleVZBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	return SandboxResult{}, &Error{Kind: UnsupportedBackend, Message: "apple-vz backend is only available on macOS"}
}
