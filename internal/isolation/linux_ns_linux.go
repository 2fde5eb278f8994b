//go:build linux

package isolation

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// deniedSyscalls is the seccomp-BPF deny list applied to every namespaced
// sandbox: syscalls that would let a process escape or tamper with the
// host (mount/reboot/module loading/ptrace).
var deniedSyscalls = []uint32{
	unix.SYS_MOUNT,
	unix.SYS_UMOUNT2,
	unix.SYS_REBOOT,
	unix.SYS_SWAPON,
	unix.SYS_SWAPOFF,
	unix.SYS_KEXEC_LOAD,
	unix.SYS_INIT_MODULE,
	unix.SYS_FINIT_MODULE,
	unix.SYS_DELETE_MODULE,
	unix.SYS_PIVOT_ROOT,
	unix.SYS_PTRACE,
}

const (
	seccompRetAllow = 0x7fff0000
	seccompRetErrno = 0x00050000
)

// LinuxNSBackend executes sandboxes inside Linux namespaces: clone-flag
// PID/mount/network isolation plus prlimit(2) resource limits (see rlimits)
// and a seccomp-BPF syscall deny list. It writes no cgroup controllers and
// installs no Landlock ruleset.
type LinuxNSBackend struct{}

// NewLinuxNSBackend returns a Linux-namespace backend.
func NewLinuxNSBackend() *LinuxNSBackend {
	return &LinuxNSBackend{}
}

func (b *LinuxNSBackend) Name() string { return "linux-ns" }

func (b *LinuxNSBackend) Available() bool {
	return hasNamespaceCapability()
}

func hasNamespaceCapability() bool {
	if os.Geteuid() == 0 {
		return true
	}
	var hdr unix.CapUserHeader
	var data unix.CapUserData
	hdr.Version = unix.LINUX_CAPABILITY_VERSION_1
	hdr.Pid = 0
	if err := unix.Capget(&hdr, &data); err == nil {
		if data.Effective&(1<<unix.CAP_SYS_ADMIN) != 0 {
			return true
		}
	}
	if val, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone"); err == nil {
		return strings.TrimSpace(string(val)) == "1"
	}
	return probeUserNamespace()
}

func probeUserNamespace() bool {
	cmd := exec.Command("true")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER,
		UidMappings: []syscall.SysProcIDMap{{
			ContainerID: os.Getuid(), HostID: os.Getuid(), Size: 1,
		}},
		GidMappings: []syscall.SysProcIDMap{{
			ContainerID: os.Getgid(), HostID: os.Getgid(), Size: 1,
		}},
	}
	return cmd.Run() == nil
}

// cloneFlags derives clone(2) namespace flags from the sandbox's network
// policy: network isolation is dropped whenever the sandbox is permitted
// any networking at all, since namespace-level port filtering isn't
// available without an additional iptables/nftables layer.
func cloneFlags(network NetworkMode) uintptr {
	flags := uintptr(syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWNET)
	if network != NetworkNone {
		flags &^= syscall.CLONE_NEWNET
	}
	return flags
}

func sysProcAttr(network NetworkMode) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{Cloneflags: cloneFlags(network)}
	if os.Geteuid() != 0 {
		attr.Cloneflags |= syscall.CLONE_NEWUSER
		uid, gid := os.Getuid(), os.Getgid()
		attr.UidMappings = []syscall.SysProcIDMap{{ContainerID: uid, HostID: uid, Size: 1}}
		attr.GidMappings = []syscall.SysProcIDMap{{ContainerID: gid, HostID: gid, Size: 1}}
	}
	return attr
}

type rlimitPair struct {
	resource int
	value    uint64
}

// rlimits derives the NS-backend resource limits from the sandbox config:
// max_bytes maps to RLIMIT_AS and max_open_files (when set) maps to
// RLIMIT_NOFILE. cpu_fraction, allow_swap and max_pids are not applied by
// this backend.
func rlimits(limits ResourceLimits) []rlimitPair {
	var pairs []rlimitPair
	pairs = append(pairs, rlimitPair{unix.RLIMIT_AS, limits.Memory.MaxBytes})
	if limits.MaxOpenFiles != nil {
		pairs = append(pairs, rlimitPair{unix.RLIMIT_NOFILE, *limits.MaxOpenFiles})
	}
	return pairs
}

// buildSeccompFilter constructs a BPF program that denies every syscall in
// deniedSyscalls (returning EPERM) and allows everything else.
func buildSeccompFilter() []unix.SockFilter {
	nDenied := len(deniedSyscalls)
	if nDenied == 0 {
		return nil
	}

	prog := make([]unix.SockFilter, 0, nDenied+3)
	prog = append(prog, unix.SockFilter{Code: unix.BPF_LD | unix.BPF_W | unix.BPF_ABS, K: 0})

	for i, nr := range deniedSyscalls {
		jmpToDeny := uint8(nDenied - i)
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_JMP | unix.BPF_JEQ | unix.BPF_K,
			Jt:   jmpToDeny,
			Jf:   0,
			K:    nr,
		})
	}

	prog = append(prog, unix.SockFilter{Code: unix.BPF_RET | unix.BPF_K, K: seccompRetAllow})
	prog = append(prog, unix.SockFilter{Code: unix.BPF_RET | unix.BPF_K, K: seccompRetErrno | uint32(unix.EPERM)})
	return prog
}

func (b *LinuxNSBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Limits.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Limits.Timeout)
		defer cancel()
	}

	self, err := os.Executable()
	if err != nil {
		return SandboxResult{}, &Error{Kind: Create, Message: "resolve self executable for ns re-exec", Err: err}
	}

	wrapped := append([]string{self, NSExecMarker}, argv...)
	cmd := exec.CommandContext(runCtx, wrapped[0], wrapped[1:]...)
	cmd.Dir = cfg.Workdir
	cmd.Env = envSlice(cfg.Env)
	cmd.SysProcAttr = sysProcAttr(cfg.Network)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return SandboxResult{}, &Error{Kind: Execution, Message: "failed to start namespaced process", Err: err}
	}

	for _, rl := range rlimits(cfg.Limits) {
		lim := unix.Rlimit{Cur: rl.value, Max: rl.value}
		_ = unix.Prlimit(cmd.Process.Pid, rl.resource, &lim, nil)
	}

	err = cmd.Wait()
	elapsed := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return SandboxResult{}, NewTimeoutError(cfg.Limits.Timeout)
	}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return SandboxResult{}, &Error{Kind: Execution, Message: "namespaced process failed", Err: err}
		}
		return SandboxResult{ExitCode: exitErr.ExitCode(), Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Elapsed: elapsed}, nil
	}

	return SandboxResult{ExitCode: 0, Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Elapsed: elapsed}, nil
}
