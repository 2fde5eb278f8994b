//go:build !linux

package isolation

import "context"

// FirecrackerBackend is unavailable outside Linux: Firecracker requires
// /dev/kvm and the Linux KVM API.
type FirecrackerBackend struct{}

// NewFirecrackerBackend returns a Firecracker backend stub.
func NewFirecrackerBackend(kernelPath, rootfsPath string) *FirecrackerBackend {
	return &FirecrackerBackend{}
}

func (b *FirecrackerBackend) Name() string { return "firecracker" }

func (b *FirecrackerBackend) Available() bool { return false }

func (b *FirecrackerBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	return SandboxResult{}, &Error{Kind: UnsupportedBackend, Message: "firecracker backend is only available on Linux"}
}
