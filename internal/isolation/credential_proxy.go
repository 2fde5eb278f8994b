package isolation

import (
	"strings"

	"github.com/crustyclaw/crustyclaw/internal/secrets"
)

// SentinelMapping is a mapping from a sentinel placeholder to a real
// credential. The real value is never stored here — it stays in the
// secret store and is resolved at proxy time.
type SentinelMapping struct {
	// Name is the store key this mapping resolves against.
	Name string
	// Sentinel is the placeholder value injected into the sandbox.
	Sentinel string
	// EnvName is the environment variable name inside the sandbox.
	EnvName string
}

func sentinelFor(name string) string {
	return "__CRUSTYCLAW_SENTINEL_" + name + "__"
}

// CredentialProxy implements the Docker Sandbox credential proxying
// pattern: real credentials never enter the sandbox. Sentinel placeholder
// values are injected into the sandbox environment; a proxy outside the
// sandbox swaps sentinels for real credentials on outbound requests.
type CredentialProxy struct {
	mappings []SentinelMapping
}

// NewCredentialProxy returns an empty credential proxy.
func NewCredentialProxy() *CredentialProxy {
	return &CredentialProxy{}
}

// AddMapping registers a sentinel for name, delivered into the sandbox as
// the envName environment variable.
func (p *CredentialProxy) AddMapping(name, envName string) {
	p.mappings = append(p.mappings, SentinelMapping{
		Name:     name,
		Sentinel: sentinelFor(name),
		EnvName:  envName,
	})
}

// Mappings returns all registered sentinel mappings.
func (p *CredentialProxy) Mappings() []SentinelMapping {
	return p.mappings
}

// Len returns the number of credential mappings.
func (p *CredentialProxy) Len() int {
	return len(p.mappings)
}

// IsEmpty reports whether the proxy has any credential mappings.
func (p *CredentialProxy) IsEmpty() bool {
	return len(p.mappings) == 0
}

// InjectSentinels sets cfg.Env[mapping.EnvName] = mapping.Sentinel for
// every registered mapping and returns the updated config. cfg.Env is
// cloned first: SandboxConfig is passed by value, but its Env field is a
// map, so mutating it in place would otherwise leak back into any Env map
// the caller already held a reference to.
func (p *CredentialProxy) InjectSentinels(cfg SandboxConfig) SandboxConfig {
	env := make(map[string]string, len(cfg.Env)+len(p.mappings))
	for k, v := range cfg.Env {
		env[k] = v
	}
	for _, m := range p.mappings {
		env[m.EnvName] = m.Sentinel
	}
	cfg.Env = env
	return cfg
}

// ResolveSentinels builds a map of sentinel -> real value by looking up
// each mapping's name in store. Returns a CredentialProxy error if any
// mapped name is missing from the store. The resolved map is string-keyed
// because ReplaceSentinels substitutes into request text; the byte copy
// used to build each value is zeroed immediately after conversion.
func (p *CredentialProxy) ResolveSentinels(store *secrets.Store) (map[string]string, error) {
	resolved := make(map[string]string, len(p.mappings))
	for _, m := range p.mappings {
		entry, ok := store.Get(m.Name)
		if !ok {
			return nil, &Error{Kind: CredentialProxy, Message: "credential '" + m.Name + "' not found in secret store"}
		}
		buf := entry.Value.ExposeBytes()
		resolved[m.Sentinel] = string(buf)
		for i := range buf {
			buf[i] = 0
		}
	}
	return resolved, nil
}

// ReplaceSentinels substitutes every sentinel occurrence in text with its
// resolved real value. Used to transform outbound request bodies/headers
// from the sandbox before forwarding to external APIs.
func (p *CredentialProxy) ReplaceSentinels(text string, resolved map[string]string) string {
	result := text
	for sentinel, real := range resolved {
		result = strings.ReplaceAll(result, sentinel, real)
	}
	return result
}

// ContainsSentinels returns the names of every mapping whose sentinel
// appears in text. Useful for detecting credential exfiltration attempts
// in sandbox output (advisory, not a pass-through gate).
func (p *CredentialProxy) ContainsSentinels(text string) []string {
	var found []string
	for _, m := range p.mappings {
		if strings.Contains(text, m.Sentinel) {
			found = append(found, m.Name)
		}
	}
	return found
}
