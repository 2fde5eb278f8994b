package secrets

import (
	"os"
	"path/filepath"
)

// FileInjection is a file-injection specification: a secret's content and
// the guest path it should appear at. content is zeroized by Close.
type FileInjection struct {
	GuestPath  string
	SecretName string
	content    []byte
}

// Close zeroizes the held content in place. Safe to call more than once.
func (f *FileInjection) Close() {
	for i := range f.content {
		f.content[i] = 0
	}
	f.content = nil
}

// StagedSecret describes a secret materialized on the host filesystem,
// ready to be bind-mounted read-only into a sandbox at GuestPath.
type StagedSecret struct {
	HostPath   string
	GuestPath  string
	SecretName string
}

// StageFileInjections writes every file-injected secret to
// stagingDir/<secret_name> with owner-read-only permissions (0o400 on
// Unix) and returns the resulting host/guest path pairs.
func (s *Store) StageFileInjections(stagingDir string) ([]StagedSecret, error) {
	var staged []StagedSecret
	for _, injection := range s.FileInjections() {
		hostFile := filepath.Join(stagingDir, injection.SecretName)
		if err := os.WriteFile(hostFile, injection.content, 0o600); err != nil {
			injection.Close()
			return nil, &Error{Kind: ErrFileWrite, Err: err}
		}
		if err := os.Chmod(hostFile, 0o400); err != nil {
			injection.Close()
			return nil, &Error{Kind: ErrFileWrite, Err: err}
		}
		injection.Close()
		staged = append(staged, StagedSecret{
			HostPath:   hostFile,
			GuestPath:  injection.GuestPath,
			SecretName: injection.SecretName,
		})
	}
	return staged, nil
}
