//go:build linux

package isolation

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NSExecEntrypoint is the re-exec child entrypoint for the Linux-namespace
// backend: it installs the seccomp-BPF deny filter, sets NO_NEW_PRIVS, and
// then replaces itself with the real sandboxed process via execve. The
// parent process spawns this entrypoint (via os.Executable, see
// LinuxNSBackend.Execute) rather than the target binary directly, because the
// filter must be installed from inside the process it will bind to.
func NSExecEntrypoint(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("linux-ns exec: empty argv")
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("linux-ns exec: PR_SET_NO_NEW_PRIVS: %w", err)
	}
	if err := installSeccompFilter(); err != nil {
		return fmt.Errorf("linux-ns exec: install seccomp filter: %w", err)
	}

	path, err := lookPath(argv[0])
	if err != nil {
		return fmt.Errorf("linux-ns exec: resolve %q: %w", argv[0], err)
	}
	return syscall.Exec(path, argv, os.Environ())
}

func installSeccompFilter() error {
	prog := buildSeccompFilter()
	if len(prog) == 0 {
		return nil
	}
	fprog := unix.SockFprog{
		Len:    uint16(len(prog)),
		Filter: &prog[0],
	}
	_, _, errno := unix.Syscall(unix.SYS_PRCTL, unix.PR_SET_SECCOMP, unix.SECCOMP_MODE_FILTER, uintptr(unsafe.Pointer(&fprog)))
	if errno != 0 {
		return errno
	}
	return nil
}

func lookPath(name string) (string, error) {
	if name[0] == '/' {
		return name, nil
	}
	return exec.LookPath(name)
}
