package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/crustyclaw/crustyclaw/internal/api/middleware"
	"github.com/crustyclaw/crustyclaw/internal/auth"
	"github.com/crustyclaw/crustyclaw/internal/isolation"
	"github.com/crustyclaw/crustyclaw/internal/pkg/audit"
	"github.com/crustyclaw/crustyclaw/internal/policy"
)

// Version and GitHash are overridden at build time via -ldflags.
var (
	Version      = "dev"
	GitHash      = "unknown"
	BuildProfile = "debug"
)

// Deps bundles the daemon state the IPC server answers requests from.
type Deps struct {
	SocketPath             string
	LogLevel               string
	IsolationBackendName   string
	MaxConcurrentSandboxes int
	DefaultTimeoutSecs     int64
	DefaultMemoryMB        uint64
	DefaultCPUFraction     float64
	NetworkPolicy          string

	Policy   *policy.Engine
	Selector *isolation.TrustBasedSelector
	Registry *isolation.Registry

	ConfigTOML func() string
	Plugins    func() []PluginInfo
	Skills     func() []SkillInfo

	Logger *slog.Logger

	// Shutdown is invoked by POST /stop after the response is written.
	Shutdown func()
}

// Server is the daemon's Unix-socket HTTP control plane.
type Server struct {
	deps      Deps
	router    *mux.Router
	http      *http.Server
	listener  net.Listener
	startedAt time.Time

	mu       sync.Mutex
	stopping bool
}

// NewServer builds the IPC server and its route table but does not bind
// the socket yet; call Serve to start accepting connections.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, startedAt: time.Now()}
	s.router = mux.NewRouter()
	s.routes()

	handler := middleware.RequestID(middleware.StructuredLog(middleware.SecureHeaders(middleware.MaxBodySize(middleware.DefaultMaxBodyBytes)(s.router))))
	s.http = &http.Server{Handler: handler}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	s.router.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	s.router.HandleFunc("/policy/evaluate", s.handlePolicyEvaluate).Methods(http.MethodPost)
	s.router.HandleFunc("/plugins", s.handlePlugins).Methods(http.MethodGet)
	s.router.HandleFunc("/skills", s.handleSkills).Methods(http.MethodGet)
	s.router.HandleFunc("/isolation", s.handleIsolation).Methods(http.MethodGet)
}

// Serve unlinks any stale socket file, binds a Unix-domain listener, and
// serves until Shutdown is called or the listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	_ = os.Remove(s.deps.SocketPath)

	l, err := net.Listen("unix", s.deps.SocketPath)
	if err != nil {
		return fmt.Errorf("ipc: listen on %s: %w", s.deps.SocketPath, err)
	}
	s.listener = l

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(l) }()

	select {
	case <-ctx.Done():
		return s.Shutdown(10 * time.Second)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Shutdown drains in-flight requests within timeout, then closes the
// listener and removes the socket file.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := s.http.Shutdown(ctx)
	_ = os.Remove(s.deps.SocketPath)
	return err
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Version:      Version,
		GitHash:      GitHash,
		BuildProfile: BuildProfile,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	skills := 0
	plugins := 0
	if s.deps.Skills != nil {
		skills = len(s.deps.Skills())
	}
	if s.deps.Plugins != nil {
		plugins = len(s.deps.Plugins())
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Running:          true,
		Version:          Version,
		UptimeSecs:       int64(time.Since(s.startedAt).Seconds()),
		ListenAddr:       s.deps.SocketPath,
		SignalEnabled:    true,
		LogLevel:         s.deps.LogLevel,
		IsolationBackend: s.deps.IsolationBackendName,
		SkillCount:       skills,
		PluginCount:      plugins,
		PID:              os.Getpid(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	already := s.stopping
	s.stopping = true
	s.mu.Unlock()

	if already {
		s.writeJSON(w, http.StatusOK, StopResponse{Acknowledged: true, Message: "shutdown already in progress"})
		return
	}

	s.writeJSON(w, http.StatusOK, StopResponse{Acknowledged: true, Message: "shutdown initiated"})
	if s.deps.Shutdown != nil {
		go s.deps.Shutdown()
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	toml := ""
	if s.deps.ConfigTOML != nil {
		toml = s.deps.ConfigTOML()
	}
	s.writeJSON(w, http.StatusOK, ConfigResponse{TOML: toml})
}

func (s *Server) handlePolicyEvaluate(w http.ResponseWriter, r *http.Request) {
	var req PolicyEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.deps.Policy == nil {
		s.writeError(w, http.StatusServiceUnavailable, "policy engine not configured")
		return
	}

	decision := s.deps.Policy.Evaluate(req.Role, req.Action, req.Resource)
	reqID := r.Header.Get(middleware.ResponseRequestIDHeader)
	identity := req.Role
	if sess := auth.AuthorizedSessionFromContext(r.Context()); sess != nil {
		identity = sess.Identity()
	}
	audit.LogPolicyDecision(reqID, identity, req.Action, req.Resource, decision.String())

	s.writeJSON(w, http.StatusOK, PolicyEvaluateResponse{
		Decision:  decision.String(),
		RuleCount: s.deps.Policy.RuleCount(),
	})
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	var plugins []PluginInfo
	if s.deps.Plugins != nil {
		plugins = s.deps.Plugins()
	}
	s.writeJSON(w, http.StatusOK, PluginsResponse{Plugins: plugins})
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	var skills []SkillInfo
	if s.deps.Skills != nil {
		skills = s.deps.Skills()
	}
	s.writeJSON(w, http.StatusOK, SkillsResponse{Skills: skills})
}

func (s *Server) handleIsolation(w http.ResponseWriter, r *http.Request) {
	available := false
	if s.deps.Registry != nil {
		if b, err := s.deps.Registry.Select(isolation.Auto); err == nil {
			available = b.Available()
		}
	}
	s.writeJSON(w, http.StatusOK, IsolationResponse{
		Backend:       s.deps.IsolationBackendName,
		Available:     available,
		MemoryMB:      s.deps.DefaultMemoryMB,
		CPUFraction:   s.deps.DefaultCPUFraction,
		TimeoutSecs:   s.deps.DefaultTimeoutSecs,
		NetworkPolicy: s.deps.NetworkPolicy,
		MaxConcurrent: s.deps.MaxConcurrentSandboxes,
	})
}
