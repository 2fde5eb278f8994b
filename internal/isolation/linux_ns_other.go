//go:build !linux

package isolation

import (
	"context"
)

// LinuxNSBackend is unavailable outside Linux: namespace isolation has no
// equivalent on other kernels.
type LinuxNSBackend struct{}

// NewLinuxNSBackend returns a Linux-namespace backend stub.
func NewLinuxNSBackend() *LinuxNSBackend {
	return &LinuxNSBackend{}
}

func (b *LinuxNSBackend) Name() string { return "linux-ns" }

func (b *LinuxNSBackend) Available() bool { return false }

func (b *LinuxNSBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	return SandboxResult{}, &Error{Kind: UnsupportedBackend, Message: "linux-ns backend is only available on Linux"}
}
