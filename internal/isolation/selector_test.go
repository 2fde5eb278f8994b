package isolation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	name      string
	available bool
}

func (f *fakeBackend) Name() string   { return f.name }
func (f *fakeBackend) Available() bool { return f.available }
func (f *fakeBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	return SandboxResult{}, nil
}

func TestRequiredLevel_MapsEveryTier(t *testing.T) {
	assert.Equal(t, MicroVM, RequiredLevel(Untrusted))
	assert.Equal(t, Container, RequiredLevel(Sandboxed))
	assert.Equal(t, Namespace, RequiredLevel(Trusted))
	assert.Equal(t, None, RequiredLevel(System))
}

func TestTrustBasedSelector_PrefersDockerForSandboxed(t *testing.T) {
	reg := &Registry{
		Docker:      &fakeBackend{name: "docker", available: true},
		Firecracker: &fakeBackend{name: "firecracker", available: false},
		AppleVZ:     &fakeBackend{name: "apple-vz", available: false},
		LinuxNS:     &fakeBackend{name: "linux-ns", available: false},
		Noop:        &fakeBackend{name: "noop", available: true},
	}
	sel := NewTrustBasedSelector(reg)
	b, err := sel.SelectFor(Sandboxed)
	require.NoError(t, err)
	assert.Equal(t, "docker", b.Name())
}

func TestTrustBasedSelector_FailsWhenNoContainerBackend(t *testing.T) {
	reg := &Registry{
		Docker:      &fakeBackend{name: "docker", available: false},
		Firecracker: &fakeBackend{name: "firecracker", available: false},
		AppleVZ:     &fakeBackend{name: "apple-vz", available: false},
		LinuxNS:     &fakeBackend{name: "linux-ns", available: false},
		Noop:        &fakeBackend{name: "noop", available: true},
	}
	sel := NewTrustBasedSelector(reg)
	_, err := sel.SelectFor(Sandboxed)
	assert.Error(t, err)
}

func TestTrustBasedSelector_SystemTierUsesNoop(t *testing.T) {
	reg := &Registry{Noop: &fakeBackend{name: "noop", available: true}}
	sel := NewTrustBasedSelector(reg)
	b, err := sel.SelectFor(System)
	require.NoError(t, err)
	assert.Equal(t, "noop", b.Name())
}

func TestRegistry_Select_ExplicitPreferenceMustBeAvailable(t *testing.T) {
	reg := &Registry{Docker: &fakeBackend{name: "docker", available: false}}
	_, err := reg.Select(PreferDocker)
	assert.Error(t, err)
}

func TestRegistry_Select_AutoFallsBackToNoop(t *testing.T) {
	reg := &Registry{Noop: &fakeBackend{name: "noop", available: true}}
	b, err := reg.Select(Auto)
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestNewDefaultRegistry_WiresAllBackends(t *testing.T) {
	reg := NewDefaultRegistry("alpine", "/nonexistent/vmlinux", "/nonexistent/rootfs", testLogger())
	assert.NotNil(t, reg.Docker)
	assert.NotNil(t, reg.Firecracker)
	assert.NotNil(t, reg.AppleVZ)
	assert.NotNil(t, reg.LinuxNS)
	assert.NotNil(t, reg.Noop)
}

func TestPreference_String(t *testing.T) {
	assert.Equal(t, "auto", Auto.String())
	assert.Equal(t, "docker", PreferDocker.String())
	assert.Equal(t, "noop", PreferNoop.String())
}
