// Package redact provides helpers to avoid exposing secret values in
// the /config IPC response or logs.
package redact

const redactedValue = "***REDACTED***"

var sensitiveFields = map[string]bool{
	"env_var": true,
	"path":    true,
	"value":   true,
}

// ConfigSecretSources redacts the env_var/path fields of each entry in
// obj["secret_sources"] in place. Keeps the name and kind so clients can
// still see which secrets are configured.
func ConfigSecretSources(obj map[string]interface{}) {
	if obj == nil {
		return
	}
	sources, ok := obj["secret_sources"].([]interface{})
	if !ok {
		return
	}
	for _, s := range sources {
		entry, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		for field := range entry {
			if sensitiveFields[field] {
				entry[field] = redactedValue
			}
		}
	}
}
