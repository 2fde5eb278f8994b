package isolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDockerBackend_BuildArgs_DeterministicOrder(t *testing.T) {
	maxPids := uint64(100)
	cfg := SandboxConfig{
		Label: "s",
		Limits: ResourceLimits{
			CPU:     CPULimits{MaxCores: 1, CPUFraction: 0.5},
			Memory:  MemoryLimits{MaxBytes: 512 * 1024 * 1024, AllowSwap: false},
			MaxPids: &maxPids,
		},
		Mounts: []Mount{
			{HostPath: "/src", GuestPath: "/src", Access: ReadOnly},
			{HostPath: "/out", GuestPath: "/out", Access: ReadWrite},
		},
		Network: NetworkNone,
		Env:     map[string]string{"A": "1"},
		Workdir: "/w",
	}
	b := NewDockerBackend("crustyclaw/sandbox:latest")

	args := b.BuildArgs(cfg, []string{"echo", "hi"})

	assert.Equal(t, []string{
		"run", "--rm", "--init",
		"--cpus", "0.50",
		"--memory", "512m",
		"--memory-swap", "512m",
		"--pids-limit", "100",
		"--network", "none",
		"--workdir", "/w",
		"-e", "A=1",
		"-v", "/src:/src:ro",
		"-v", "/out:/out",
		"--label", "crustyclaw.sandbox=s",
		"crustyclaw/sandbox:latest",
		"echo", "hi",
	}, args)
}

func TestDockerBackend_BuildArgs_IsDeterministicAcrossCalls(t *testing.T) {
	cfg := NewSandboxConfig("determinism")
	cfg.Workdir = "/w"
	b := NewDockerBackend("img")

	first := b.BuildArgs(cfg, []string{"true"})
	second := b.BuildArgs(cfg, []string{"true"})

	assert.Equal(t, first, second)
}

func TestDockerBackend_Name(t *testing.T) {
	assert.Equal(t, "docker", NewDockerBackend("img").Name())
}
