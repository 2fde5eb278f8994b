package config

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/crustyclaw/crustyclaw/internal/pkg/redact"
)

// SecretSourceConfig is the config-level description of a secret the
// daemon materializes into the secret store at startup.
type SecretSourceConfig struct {
	Name      string `mapstructure:"name" toml:"name"`
	Kind      string `mapstructure:"kind" toml:"kind"` // env | file
	Path      string `mapstructure:"path" toml:"path"`
	EnvVar    string `mapstructure:"env_var" toml:"env_var"`
	Injection string `mapstructure:"injection" toml:"injection"` // env | file | both
}

// PolicyRuleConfig is the config-level description of a policy.Rule.
type PolicyRuleConfig struct {
	Role     string `mapstructure:"role" toml:"role"`
	Action   string `mapstructure:"action" toml:"action"`
	Resource string `mapstructure:"resource" toml:"resource"`
	Effect   string `mapstructure:"effect" toml:"effect"` // allow | deny
	Priority uint32 `mapstructure:"priority" toml:"priority"`
}

// AppConfig is CrustyClaw's top-level configuration: daemon control
// plane, isolation defaults, secret sources, and policy/auth wiring.
// Struct tags carry both mapstructure (viper's decode path) and toml
// (GET /config's wire-format serialization, see ToTOML) keys, kept
// identical so serializing and re-loading an AppConfig round-trips.
type AppConfig struct {
	LogLevel  string `mapstructure:"log_level" toml:"log_level"`   // debug | info | warn | error
	LogFormat string `mapstructure:"log_format" toml:"log_format"` // json | text

	SocketPath         string `mapstructure:"socket_path" toml:"socket_path"`
	ShutdownTimeoutSec int    `mapstructure:"shutdown_timeout_sec" toml:"shutdown_timeout_sec"`

	MaxConcurrentSandboxes int `mapstructure:"max_concurrent_sandboxes" toml:"max_concurrent_sandboxes"`

	DefaultPolicyEffect string             `mapstructure:"default_policy_effect" toml:"default_policy_effect"` // allow | deny
	PolicyRules         []PolicyRuleConfig `mapstructure:"policy_rules" toml:"policy_rules"`

	AuthRoleMap map[string]string `mapstructure:"auth_role_map" toml:"auth_role_map"`

	SecretSources []SecretSourceConfig `mapstructure:"secret_sources" toml:"secret_sources"`
	StagingDir    string               `mapstructure:"staging_dir" toml:"staging_dir"`

	IsolationBackend  string `mapstructure:"isolation_backend" toml:"isolation_backend"` // auto | docker | firecracker | apple-vz | linux-ns | noop
	DockerImage       string `mapstructure:"docker_image" toml:"docker_image"`
	FirecrackerKernel string `mapstructure:"firecracker_kernel" toml:"firecracker_kernel"`
	FirecrackerRootfs string `mapstructure:"firecracker_rootfs" toml:"firecracker_rootfs"`

	DefaultTimeoutSec  int     `mapstructure:"default_timeout_sec" toml:"default_timeout_sec"`
	DefaultMemoryMB    int     `mapstructure:"default_memory_mb" toml:"default_memory_mb"`
	DefaultCPUFraction float64 `mapstructure:"default_cpu_fraction" toml:"default_cpu_fraction"`
}

// ToTOML serializes cfg to its TOML wire format: the format GET /config
// returns and the format Load reads back, so marshal-then-Load round-trips
// to an equal AppConfig.
func (cfg AppConfig) ToTOML() (string, error) {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config to toml: %w", err)
	}
	return string(buf), nil
}

// RedactedTOML serializes cfg to TOML with every secret source's
// env_var/path fields blanked out, the form GET /config actually returns:
// callers can see which secrets are configured without learning where
// their values live.
func (cfg AppConfig) RedactedTOML() (string, error) {
	raw, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config to toml: %w", err)
	}

	var obj map[string]interface{}
	if err := toml.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode config for redaction: %w", err)
	}
	redact.ConfigSecretSources(obj)

	redacted, err := toml.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("marshal redacted config to toml: %w", err)
	}
	return string(redacted), nil
}

// Load reads configuration from (in order) defaults, a config file
// named "crustyclaw.toml" on the search path, and CRUSTYCLAW_-prefixed
// environment variables, the way the teacher's Load composes viper.
func Load() (*AppConfig, error) {
	viper.SetConfigName("crustyclaw")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc/crustyclaw/")
	viper.AddConfigPath("$HOME/.crustyclaw")
	viper.AddConfigPath(".")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("socket_path", "/tmp/crustyclaw.sock")
	viper.SetDefault("shutdown_timeout_sec", 15)
	viper.SetDefault("max_concurrent_sandboxes", 4)
	viper.SetDefault("default_policy_effect", "deny")
	viper.SetDefault("staging_dir", "/tmp/crustyclaw-staging")
	viper.SetDefault("isolation_backend", "auto")
	viper.SetDefault("docker_image", "crustyclaw/sandbox:latest")
	viper.SetDefault("default_timeout_sec", 30)
	viper.SetDefault("default_memory_mb", 256)
	viper.SetDefault("default_cpu_fraction", 1.0)

	viper.SetEnvPrefix("CRUSTYCLAW")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configs the rest of the system can't act on: an
// effect string outside {"allow","deny"} is a config-load error, not a
// runtime surprise.
func Validate(cfg *AppConfig) error {
	switch cfg.DefaultPolicyEffect {
	case "allow", "deny":
	default:
		return fmt.Errorf("default_policy_effect must be \"allow\" or \"deny\", got %q", cfg.DefaultPolicyEffect)
	}
	for _, r := range cfg.PolicyRules {
		switch r.Effect {
		case "allow", "deny":
		default:
			return fmt.Errorf("policy rule %s/%s/%s: effect must be \"allow\" or \"deny\", got %q", r.Role, r.Action, r.Resource, r.Effect)
		}
	}
	if cfg.SocketPath == "" {
		return fmt.Errorf("socket_path must not be empty")
	}
	return nil
}
