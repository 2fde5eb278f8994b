// Package daemon wires the config, policy, secret, and isolation layers
// into the long-running CrustyClaw process and owns its signal-driven
// lifecycle: SIGHUP reloads configuration in place, SIGINT/SIGTERM drain
// the IPC server and exit.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crustyclaw/crustyclaw/internal/config"
	"github.com/crustyclaw/crustyclaw/internal/ipc"
	"github.com/crustyclaw/crustyclaw/internal/isolation"
	"github.com/crustyclaw/crustyclaw/internal/policy"
	"github.com/crustyclaw/crustyclaw/internal/secrets"
)

// Daemon is the assembled runtime: config watcher, policy engine, secret
// store, isolation registry, and the IPC control plane serving them.
type Daemon struct {
	watcher  *config.Watcher
	logger   *slog.Logger
	policy   *policy.Engine
	secrets  *secrets.Store
	registry *isolation.Registry
	selector *isolation.TrustBasedSelector
	executor *isolation.Executor
	ipc      *ipc.Server

	mu          sync.Mutex
	cancelServe context.CancelFunc
}

// New assembles a Daemon from a loaded config. It builds the policy
// engine, materializes configured secrets into the store, and wires the
// isolation backend registry, but does not start serving.
func New(cfg *config.AppConfig, logger *slog.Logger) (*Daemon, error) {
	eng, err := policy.BuildPolicy(toPolicyRules(cfg.PolicyRules), cfg.DefaultPolicyEffect)
	if err != nil {
		return nil, fmt.Errorf("daemon: build policy: %w", err)
	}

	store := secrets.NewStore()
	if err := loadSecretSources(store, cfg.SecretSources); err != nil {
		return nil, fmt.Errorf("daemon: load secret sources: %w", err)
	}

	registry := isolation.NewDefaultRegistry(cfg.DockerImage, cfg.FirecrackerKernel, cfg.FirecrackerRootfs, logger)
	selector := isolation.NewTrustBasedSelector(registry)
	executor := isolation.NewExecutor(cfg.MaxConcurrentSandboxes)

	watcher := config.NewWatcher(*cfg)

	d := &Daemon{
		watcher:  watcher,
		logger:   logger,
		policy:   eng,
		secrets:  store,
		registry: registry,
		selector: selector,
		executor: executor,
	}

	d.ipc = ipc.NewServer(ipc.Deps{
		SocketPath:             cfg.SocketPath,
		LogLevel:               cfg.LogLevel,
		IsolationBackendName:   cfg.IsolationBackend,
		MaxConcurrentSandboxes: cfg.MaxConcurrentSandboxes,
		DefaultTimeoutSecs:     int64(cfg.DefaultTimeoutSec),
		DefaultMemoryMB:        uint64(cfg.DefaultMemoryMB),
		DefaultCPUFraction:     cfg.DefaultCPUFraction,
		Policy:                 eng,
		Selector:               selector,
		Registry:               registry,
		Logger:                 logger,
		ConfigTOML: func() string {
			out, err := watcher.Current().RedactedTOML()
			if err != nil {
				return ""
			}
			return out
		},
		Plugins:  func() []ipc.PluginInfo { return nil },
		Skills:   func() []ipc.SkillInfo { return nil },
		Shutdown: d.requestStop,
	})

	return d, nil
}

// Policy returns the daemon's policy engine.
func (d *Daemon) Policy() *policy.Engine { return d.policy }

// Secrets returns the daemon's secret store.
func (d *Daemon) Secrets() *secrets.Store { return d.secrets }

// Selector returns the daemon's trust-tier-based backend selector.
func (d *Daemon) Selector() *isolation.TrustBasedSelector { return d.selector }

// Executor returns the daemon's concurrency-bounded sandbox executor,
// capped at the configured max_concurrent_sandboxes.
func (d *Daemon) Executor() *isolation.Executor { return d.executor }

// Watcher returns the daemon's config watcher, for subscribing to
// reloads from outside the package (e.g. a CLI `config watch` command).
func (d *Daemon) Watcher() *config.Watcher { return d.watcher }

// Serve blocks, running the IPC control plane until ctx is canceled or
// RequestStop is called (e.g. by a POST /stop handler).
func (d *Daemon) Serve(ctx context.Context) error {
	serveCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancelServe = cancel
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.cancelServe = nil
		d.mu.Unlock()
		cancel()
	}()

	return d.ipc.Serve(serveCtx)
}

// RequestStop cancels the context Serve is running under, the same way an
// external ctx cancellation or OS signal would. It is what the IPC
// server's POST /stop handler calls to actually stop the daemon, rather
// than just acknowledging the request. A no-op if Serve is not running.
func (d *Daemon) RequestStop() {
	d.mu.Lock()
	cancel := d.cancelServe
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (d *Daemon) requestStop() { d.RequestStop() }

// Shutdown drains the IPC server within timeout and closes the secret
// store, zeroizing every held secret value.
func (d *Daemon) Shutdown(timeoutSec int) error {
	err := d.ipc.Shutdown(secondsToDuration(timeoutSec))
	d.secrets.Close()
	return err
}

// Reload re-validates cfg and publishes it to the config watcher. It
// does not rebuild the policy engine or secret store in place: callers
// that need those to follow configuration changes should restart the
// daemon, matching the teacher's non-interruptive reload semantics for
// hot-reloadable fields (log level, isolation defaults) only.
func (d *Daemon) Reload(cfg config.AppConfig) error {
	return d.watcher.Publish(cfg)
}

func toPolicyRules(rules []config.PolicyRuleConfig) []policy.Rule {
	out := make([]policy.Rule, 0, len(rules))
	for _, r := range rules {
		effect, err := policy.ParseEffect(r.Effect)
		if err != nil {
			continue
		}
		out = append(out, policy.Rule{
			Role:     r.Role,
			Action:   r.Action,
			Resource: r.Resource,
			Effect:   effect,
			Priority: r.Priority,
		})
	}
	return out
}

func loadSecretSources(store *secrets.Store, sources []config.SecretSourceConfig) error {
	for _, src := range sources {
		injection := injectionFor(src)
		switch src.Kind {
		case "env":
			if err := store.LoadFromEnv(src.Name, injection); err != nil {
				return fmt.Errorf("secret %q: %w", src.Name, err)
			}
		case "file":
			if err := store.LoadFromFile(src.Name, src.Path, injection); err != nil {
				return fmt.Errorf("secret %q: %w", src.Name, err)
			}
		default:
			return fmt.Errorf("secret %q: unknown kind %q", src.Name, src.Kind)
		}
	}
	return nil
}

func injectionFor(src config.SecretSourceConfig) secrets.Injection {
	switch src.Injection {
	case "file":
		return secrets.FileInjectionMethod(src.Path)
	case "both":
		return secrets.BothInjection(src.EnvVar, src.Path)
	default:
		return secrets.EnvInjection(src.EnvVar)
	}
}
