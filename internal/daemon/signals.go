package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crustyclaw/crustyclaw/internal/config"
)

func secondsToDuration(sec int) time.Duration {
	if sec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(sec) * time.Second
}

// Run starts the IPC control plane and blocks handling OS signals until
// SIGINT or SIGTERM triggers a graceful shutdown. SIGHUP calls reload to
// re-read configuration from disk and publishes the result to the
// config watcher in place, without interrupting in-flight requests.
func (d *Daemon) Run(ctx context.Context, shutdownTimeoutSec int, reload func() (config.AppConfig, error)) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- d.Serve(serveCtx) }()

	for {
		select {
		case err := <-serveErr:
			// Serve stopped on its own: either an IPC-layer error, or a
			// POST /stop call reached RequestStop directly. Either way
			// the secret store still needs to be closed.
			_ = d.Shutdown(shutdownTimeoutSec)
			return err
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				if reload != nil {
					if cfg, err := reload(); err == nil {
						if err := d.Reload(cfg); err != nil && d.logger != nil {
							d.logger.Warn("config reload rejected", "error", err)
						}
					} else if d.logger != nil {
						d.logger.Warn("config reload failed", "error", err)
					}
				}
			case syscall.SIGINT, syscall.SIGTERM:
				cancel()
				err := <-serveErr
				_ = d.Shutdown(shutdownTimeoutSec)
				return err
			}
		case <-ctx.Done():
			cancel()
			err := <-serveErr
			_ = d.Shutdown(shutdownTimeoutSec)
			return err
		}
	}
}
