package isolation

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// NoopBackend executes directly on the host with no isolation at all. It is
// always available and exists for development and for the System trust
// tier, where no sandboxing is required. Every execution logs a warning
// that no isolation is being enforced.
type NoopBackend struct {
	logger *slog.Logger
}

// NewNoopBackend returns a NoopBackend that logs through logger (or the
// default logger if nil).
func NewNoopBackend(logger *slog.Logger) *NoopBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopBackend{logger: logger}
}

func (b *NoopBackend) Name() string { return "noop" }

func (b *NoopBackend) Available() bool { return true }

func (b *NoopBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	b.logger.Warn("executing with no isolation enforced", "backend", "noop", "label", cfg.Label)

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Limits.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Limits.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if cfg.Workdir != "" {
		cmd.Dir = cfg.Workdir
	}
	cmd.Env = envSlice(cfg.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return SandboxResult{}, NewTimeoutError(cfg.Limits.Timeout)
	}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return SandboxResult{}, &Error{Kind: Execution, Message: "failed to run command", Err: err}
		}
		return SandboxResult{
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.Bytes(),
			Stderr:   stderr.Bytes(),
			Elapsed:  elapsed,
		}, nil
	}

	return SandboxResult{
		ExitCode: 0,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Elapsed:  elapsed,
	}, nil
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
