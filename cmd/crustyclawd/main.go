// Command crustyclawd is the CrustyClaw sandboxing daemon: it loads
// configuration, builds the policy/secret/isolation layers, and serves
// the Unix-socket control plane until signaled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/crustyclaw/crustyclaw/internal/config"
	"github.com/crustyclaw/crustyclaw/internal/daemon"
	"github.com/crustyclaw/crustyclaw/internal/isolation"
	"github.com/crustyclaw/crustyclaw/internal/pkg/logger"
)

func main() {
	// The Linux-namespace backend re-execs this same binary with
	// NSExecMarker prepended to the sandboxed argv so it can install the
	// seccomp filter on itself before execve-ing into the real command.
	if len(os.Args) > 1 && os.Args[1] == isolation.NSExecMarker {
		if runtime.GOOS != "linux" {
			fmt.Fprintln(os.Stderr, "crustyclawd: ns-exec re-entry is only valid on linux")
			os.Exit(1)
		}
		if err := isolation.NSExecEntrypoint(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "crustyclawd:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "crustyclawd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Info("starting crustyclawd",
		"socket", cfg.SocketPath,
		"isolation_backend", cfg.IsolationBackend,
		"max_concurrent_sandboxes", cfg.MaxConcurrentSandboxes,
	)

	d, err := daemon.New(cfg, log)
	if err != nil {
		return fmt.Errorf("assemble daemon: %w", err)
	}

	reload := func() (config.AppConfig, error) {
		fresh, err := config.Load()
		if err != nil {
			return config.AppConfig{}, err
		}
		return *fresh, nil
	}

	err = d.Run(context.Background(), cfg.ShutdownTimeoutSec, reload)
	log.Info("crustyclawd stopped")
	return err
}
