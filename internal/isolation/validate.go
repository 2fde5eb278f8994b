package isolation

import (
	"path/filepath"
)

// Validate checks a SandboxConfig against the invariants every backend must
// enforce before Execute is attempted: non-empty label, max_cores >= 1,
// cpu_fraction in (0,1], max_bytes > 0, every mount's guest path absolute,
// and a non-empty argv (checked by the caller since argv isn't part of the
// config itself — see ValidateArgv).
func Validate(cfg SandboxConfig) error {
	if cfg.Label == "" {
		return NewCreateError("label must not be empty")
	}
	if cfg.Limits.CPU.MaxCores < 1 {
		return NewCreateError("cpu.max_cores must be >= 1")
	}
	if cfg.Limits.CPU.CPUFraction <= 0 || cfg.Limits.CPU.CPUFraction > 1 {
		return NewCreateError("cpu.cpu_fraction must be in (0, 1]")
	}
	if cfg.Limits.Memory.MaxBytes == 0 {
		return NewCreateError("memory.max_bytes must be > 0")
	}
	for _, m := range cfg.Mounts {
		if !filepath.IsAbs(m.GuestPath) {
			return NewCreateError("mount guest_path must be absolute: " + m.GuestPath)
		}
	}
	return nil
}

// ValidateArgv rejects an empty argv, per the config validation contract.
func ValidateArgv(argv []string) error {
	if len(argv) == 0 {
		return NewCreateError("argv must not be empty")
	}
	return nil
}
