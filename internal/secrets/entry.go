package secrets

import "path/filepath"

// InjectionKind selects how a secret is delivered to a sandbox.
type InjectionKind int

const (
	// InjectionEnv injects the secret as an environment variable.
	InjectionEnv InjectionKind = iota
	// InjectionFile injects the secret as a read-only file at a guest path.
	InjectionFile
	// InjectionBoth injects as both an env var and a file.
	InjectionBoth
)

// Injection describes how a secret should be delivered into a sandbox.
type Injection struct {
	Kind     InjectionKind
	EnvName  string // set for InjectionEnv and InjectionBoth
	FilePath string // set for InjectionFile and InjectionBoth; guest-side path
}

// EnvInjection builds an Injection that sets envName in the sandbox env.
func EnvInjection(envName string) Injection {
	return Injection{Kind: InjectionEnv, EnvName: envName}
}

// FileInjectionMethod builds an Injection that writes the secret to guestPath.
func FileInjectionMethod(guestPath string) Injection {
	return Injection{Kind: InjectionFile, FilePath: guestPath}
}

// BothInjection builds an Injection that does both.
func BothInjection(envName, guestPath string) Injection {
	return Injection{Kind: InjectionBoth, EnvName: envName, FilePath: guestPath}
}

// Entry is a named secret with its injection configuration.
type Entry struct {
	Name        string
	Value       *Value
	Injection   Injection
	Description string
}

// Source is the provenance of a loaded secret.
type Source struct {
	Kind SourceKind
	// Var holds the environment variable name for SourceEnvironment;
	// Path holds the file path for SourceFile. Empty for SourceConfig.
	Var  string
	Path string
}

// SourceKind enumerates where a secret entry was loaded from.
type SourceKind int

const (
	// SourceConfig means the secret came from the loaded config.
	SourceConfig SourceKind = iota
	// SourceEnvironment means the secret came from an environment variable.
	SourceEnvironment
	// SourceFile means the secret came from a file on disk.
	SourceFile
)

func (s Source) String() string {
	switch s.Kind {
	case SourceEnvironment:
		return "env:" + s.Var
	case SourceFile:
		return "file:" + filepath.Clean(s.Path)
	default:
		return "config"
	}
}
