package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crustyclaw/crustyclaw/internal/policy"
)

func startTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "crustyclaw.sock")

	eng := policy.NewEngine()
	eng.AddRule(policy.Rule{Role: "admin", Action: "*", Resource: "*", Effect: policy.Allow, Priority: 10})

	srv := NewServer(Deps{
		SocketPath:             sockPath,
		LogLevel:               "info",
		IsolationBackendName:   "noop",
		MaxConcurrentSandboxes: 4,
		Policy:                 eng,
		ConfigTOML:             func() string { return "log_level = \"info\"" },
		Plugins:                func() []PluginInfo { return nil },
		Skills:                 func() []SkillInfo { return []SkillInfo{{Name: "echo", Isolated: true}} },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(sockPath)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return srv, sockPath
}

func TestServer_HealthAndStatus(t *testing.T) {
	_, sockPath := startTestServer(t)
	client := NewClient(sockPath)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, 1, status.SkillCount)
}

func TestServer_PolicyEvaluate(t *testing.T) {
	_, sockPath := startTestServer(t)
	client := NewClient(sockPath)

	resp, err := client.EvaluatePolicy(context.Background(), "admin", "deploy", "prod")
	require.NoError(t, err)
	assert.Equal(t, "allowed", resp.Decision)

	resp, err = client.EvaluatePolicy(context.Background(), "nobody", "deploy", "prod")
	require.NoError(t, err)
	assert.Equal(t, "no_match", resp.Decision)
}

func TestClient_MissingSocketReturnsDistinctError(t *testing.T) {
	client := NewClient(filepath.Join(t.TempDir(), "nonexistent.sock"))
	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
}

func TestServer_Skills(t *testing.T) {
	_, sockPath := startTestServer(t)
	client := NewClient(sockPath)

	resp, err := client.Skills(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Skills, 1)
	assert.Equal(t, "echo", resp.Skills[0].Name)
}

func TestServer_Stop_ActuallyShutsDownTheServer(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "crustyclaw.sock")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(Deps{
		SocketPath:           sockPath,
		IsolationBackendName: "noop",
		ConfigTOML:           func() string { return "" },
		Plugins:              func() []PluginInfo { return nil },
		Skills:               func() []SkillInfo { return nil },
		Shutdown:             cancel,
	})

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(sockPath)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	client := NewClient(sockPath)
	stopResp, err := client.Stop(context.Background())
	require.NoError(t, err)
	assert.True(t, stopResp.Acknowledged)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not shut down after POST /stop")
	}

	_, err = os.Stat(sockPath)
	assert.True(t, os.IsNotExist(err), "socket file should be removed after shutdown")
}
