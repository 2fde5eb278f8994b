package isolation

import "context"

// Backend is the capability contract every isolation mechanism implements.
// Implementations must be safe to call concurrently; max_concurrent is
// enforced by the caller (see Executor), not the backend itself.
type Backend interface {
	// Name returns a stable backend tag (e.g. "docker").
	Name() string

	// Available probes the host once (binary present, kernel feature
	// enabled, correct OS). Must not mutate global state.
	Available() bool

	// Execute runs argv under cfg. It honours cfg.Limits.Timeout: on
	// expiry the child is forcibly terminated and a Timeout error is
	// returned. For a run that completes, including one with a non-zero
	// exit code, stdout/stderr are returned in the result where the
	// underlying mechanism permits it; a Timeout or launch error returns an
	// empty result.
	Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error)
}

// Sandbox binds a SandboxConfig to a Backend, validating both at
// construction time.
type Sandbox struct {
	cfg     SandboxConfig
	backend Backend
}

// NewSandbox validates cfg and backend.Available(), returning a Sandbox
// ready for Execute.
func NewSandbox(cfg SandboxConfig, backend Backend) (*Sandbox, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if !backend.Available() {
		return nil, &Error{Kind: UnsupportedBackend, Message: backend.Name() + " is not available on this host"}
	}
	return &Sandbox{cfg: cfg, backend: backend}, nil
}

// Execute runs argv in the bound backend under the bound config.
func (s *Sandbox) Execute(ctx context.Context, argv []string) (SandboxResult, error) {
	if err := ValidateArgv(argv); err != nil {
		return SandboxResult{}, err
	}
	return s.backend.Execute(ctx, s.cfg, argv)
}
