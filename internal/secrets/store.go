package secrets

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// Store is an in-memory mapping from unique secret name to Entry, paired
// with a provenance tag per name. Created empty; entries are added by a
// loader. Close zeroizes every held value and clears the maps.
type Store struct {
	secrets map[string]Entry
	sources map[string]Source
}

// NewStore returns an empty secret store.
func NewStore() *Store {
	return &Store{
		secrets: make(map[string]Entry),
		sources: make(map[string]Source),
	}
}

// Insert adds entry to the store under source, rejecting empty values.
func (s *Store) Insert(entry Entry, source Source) error {
	if entry.Value == nil || entry.Value.IsEmpty() {
		return &Error{Kind: ErrEmptyValue, Name: entry.Name}
	}
	s.secrets[entry.Name] = entry
	s.sources[entry.Name] = source
	return nil
}

// Get returns the entry for name, and whether it exists.
func (s *Store) Get(name string) (Entry, bool) {
	e, ok := s.secrets[name]
	return e, ok
}

// Contains reports whether name exists in the store.
func (s *Store) Contains(name string) bool {
	_, ok := s.secrets[name]
	return ok
}

// Source returns the provenance of name, and whether it exists.
func (s *Store) Source(name string) (Source, bool) {
	src, ok := s.sources[name]
	return src, ok
}

// Names returns all secret names, sorted for deterministic output.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.secrets))
	for name := range s.secrets {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of secrets held.
func (s *Store) Len() int {
	return len(s.secrets)
}

// IsEmpty reports whether the store holds no secrets.
func (s *Store) IsEmpty() bool {
	return len(s.secrets) == 0
}

// Remove deletes name from the store, zeroizing its value if present.
func (s *Store) Remove(name string) {
	if e, ok := s.secrets[name]; ok {
		e.Value.Close()
	}
	delete(s.secrets, name)
	delete(s.sources, name)
}

// LoadFromEnv loads a secret from the environment variable
// CRUSTYCLAW_SECRET_<UPPER(name)>.
func (s *Store) LoadFromEnv(name string, injection Injection) error {
	envKey := "CRUSTYCLAW_SECRET_" + strings.ToUpper(name)
	value, ok := os.LookupEnv(envKey)
	if !ok {
		return &Error{Kind: ErrEnvNotSet, Name: envKey}
	}
	entry := Entry{
		Name:        name,
		Value:       NewValue(value),
		Injection:   injection,
		Description: "loaded from environment variable " + envKey,
	}
	return s.Insert(entry, Source{Kind: SourceEnvironment, Var: envKey})
}

// LoadFromFile loads a secret from the file at path, trimming trailing
// newlines.
func (s *Store) LoadFromFile(name, path string, injection Injection) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return &Error{Kind: ErrFileRead, Path: path, Err: err}
	}
	value := strings.TrimRight(string(content), "\n")
	entry := Entry{
		Name:        name,
		Value:       NewValue(value),
		Injection:   injection,
		Description: "loaded from file " + path,
	}
	return s.Insert(entry, Source{Kind: SourceFile, Path: path})
}

// EnvInjections returns a map of env var name -> secret value for every
// entry configured with InjectionEnv or InjectionBoth. The SandboxConfig
// env map this feeds is keyed/valued by string (per the sandbox config
// contract), so the final copy is unavoidable; the intermediate byte copy
// is zeroed immediately after conversion rather than left for the GC.
func (s *Store) EnvInjections() map[string]string {
	envs := make(map[string]string)
	for _, entry := range s.secrets {
		switch entry.Injection.Kind {
		case InjectionEnv, InjectionBoth:
			buf := entry.Value.ExposeBytes()
			envs[entry.Injection.EnvName] = string(buf)
			zero(buf)
		}
	}
	return envs
}

// FileInjections returns the file-injection specifications for every entry
// configured with InjectionFile or InjectionBoth. Each FileInjection owns
// its own byte copy of the secret so its Close zeroizes real storage.
func (s *Store) FileInjections() []FileInjection {
	var files []FileInjection
	for _, entry := range s.secrets {
		switch entry.Injection.Kind {
		case InjectionFile, InjectionBoth:
			files = append(files, FileInjection{
				GuestPath:  entry.Injection.FilePath,
				SecretName: entry.Name,
				content:    entry.Value.ExposeBytes(),
			})
		}
	}
	return files
}

// zero overwrites buf's bytes with zero in place.
func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// Close zeroizes every held secret value and clears the maps. Idempotent.
func (s *Store) Close() {
	for _, e := range s.secrets {
		e.Value.Close()
	}
	s.secrets = make(map[string]Entry)
	s.sources = make(map[string]Source)
}

// GoString implements fmt.GoStringer; Debug output lists the count and
// names only, never values.
func (s *Store) GoString() string {
	return "secrets.Store{count: " + strconv.Itoa(len(s.secrets)) + ", names: " + strings.Join(s.Names(), ",") + "}"
}
