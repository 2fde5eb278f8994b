package config

import (
	"testing"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_RejectsBadDefaultEffect(t *testing.T) {
	cfg := &AppConfig{SocketPath: "/tmp/x.sock", DefaultPolicyEffect: "maybe"}
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsBadRuleEffect(t *testing.T) {
	cfg := &AppConfig{
		SocketPath:          "/tmp/x.sock",
		DefaultPolicyEffect: "deny",
		PolicyRules:         []PolicyRuleConfig{{Role: "*", Action: "*", Resource: "*", Effect: "maybe"}},
	}
	assert.Error(t, Validate(cfg))
}

func TestValidate_RejectsEmptySocketPath(t *testing.T) {
	cfg := &AppConfig{SocketPath: "", DefaultPolicyEffect: "deny"}
	assert.Error(t, Validate(cfg))
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	cfg := &AppConfig{
		SocketPath:          "/tmp/x.sock",
		DefaultPolicyEffect: "allow",
		PolicyRules:         []PolicyRuleConfig{{Role: "*", Action: "*", Resource: "*", Effect: "deny"}},
	}
	assert.NoError(t, Validate(cfg))
}

func TestToTOML_ProducesRealTOML(t *testing.T) {
	cfg := AppConfig{
		LogLevel:            "debug",
		SocketPath:          "/tmp/x.sock",
		DefaultPolicyEffect: "allow",
		PolicyRules:         []PolicyRuleConfig{{Role: "admin", Action: "*", Resource: "*", Effect: "allow", Priority: 5}},
		SecretSources:       []SecretSourceConfig{{Name: "db", Kind: "env", EnvVar: "DB_PASSWORD", Injection: "env"}},
		AuthRoleMap:         map[string]string{"alice": "operator"},
	}

	out, err := cfg.ToTOML()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, toml.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "debug", decoded["log_level"])
	assert.Equal(t, "/tmp/x.sock", decoded["socket_path"])
}

func TestToTOML_RoundTripsToEqualConfig(t *testing.T) {
	cfg := AppConfig{
		LogLevel:               "warn",
		LogFormat:              "text",
		SocketPath:             "/tmp/y.sock",
		ShutdownTimeoutSec:     20,
		MaxConcurrentSandboxes: 8,
		DefaultPolicyEffect:    "deny",
		PolicyRules:            []PolicyRuleConfig{{Role: "user", Action: "read", Resource: "status", Effect: "allow", Priority: 1}},
		AuthRoleMap:            map[string]string{"bob": "viewer"},
		SecretSources:          []SecretSourceConfig{{Name: "api-key", Kind: "file", Path: "/run/secrets/api-key", Injection: "file"}},
		StagingDir:             "/tmp/staging",
		IsolationBackend:       "docker",
		DockerImage:            "crustyclaw/sandbox:latest",
		DefaultTimeoutSec:      60,
		DefaultMemoryMB:        512,
		DefaultCPUFraction:     2.0,
	}

	out, err := cfg.ToTOML()
	require.NoError(t, err)

	var roundTripped AppConfig
	require.NoError(t, toml.Unmarshal([]byte(out), &roundTripped))
	assert.Equal(t, cfg, roundTripped)
}
