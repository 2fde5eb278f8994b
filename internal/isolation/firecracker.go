//go:build linux

package isolation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"
)

// firecrackerClient talks to a single Firecracker VMM process over its
// API unix socket. Firecracker's control surface is a small REST API
// (PUT /machine-config, /boot-source, /drives/{id}, /network-interfaces/{id},
// PUT /actions to start); a generated Swagger SDK exists upstream but pulls
// in a client generator and a wide transport surface for six call sites,
// so this is a direct http.Client dialed over the socket instead.
type firecrackerClient struct {
	sockPath string
	http     *http.Client
}

func newFirecrackerClient(sockPath string) *firecrackerClient {
	return &firecrackerClient{
		sockPath: sockPath,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					d := net.Dialer{}
					return d.DialContext(ctx, "unix", sockPath)
				},
			},
			Timeout: 5 * time.Second,
		},
	}
}

func (c *firecrackerClient) waitForSocket(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(c.sockPath); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	return fmt.Errorf("firecracker: api socket %s did not appear within %s", c.sockPath, timeout)
}

func (c *firecrackerClient) put(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("firecracker: marshal %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, "http://unix"+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("firecracker: PUT %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("firecracker: PUT %s: status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *firecrackerClient) putMachineConfig(cpus uint32, memMB uint64) error {
	return c.put(context.Background(), "/machine-config", map[string]any{
		"vcpu_count":   cpus,
		"mem_size_mib": memMB,
	})
}

func (c *firecrackerClient) putBootSource(kernelPath, bootArgs string) error {
	return c.put(context.Background(), "/boot-source", map[string]any{
		"kernel_image_path": kernelPath,
		"boot_args":         bootArgs,
	})
}

func (c *firecrackerClient) putDrive(id, path string, root, readOnly bool) error {
	return c.put(context.Background(), "/drives/"+id, map[string]any{
		"drive_id":       id,
		"path_on_host":   path,
		"is_root_device": root,
		"is_read_only":   readOnly,
	})
}

func (c *firecrackerClient) putNetworkInterface(ifaceID, guestMAC, hostDev string) error {
	return c.put(context.Background(), "/network-interfaces/"+ifaceID, map[string]any{
		"iface_id":      ifaceID,
		"guest_mac":     guestMAC,
		"host_dev_name": hostDev,
	})
}

func (c *firecrackerClient) startInstance() error {
	return c.put(context.Background(), "/actions", map[string]any{
		"action_type": "InstanceStart",
	})
}

func (c *firecrackerClient) sendCtrlAltDel() error {
	return c.put(context.Background(), "/actions", map[string]any{
		"action_type": "SendCtrlAltDel",
	})
}

// FirecrackerBackend runs sandboxes as Firecracker microVMs. This is the
// strongest isolation tier: a guest kernel and its own memory space rather
// than a shared-kernel container or namespace.
type FirecrackerBackend struct {
	BinPath    string
	KernelPath string
	RootfsPath string
}

// NewFirecrackerBackend returns a Firecracker backend using the given
// kernel and base rootfs images.
func NewFirecrackerBackend(kernelPath, rootfsPath string) *FirecrackerBackend {
	return &FirecrackerBackend{BinPath: "firecracker", KernelPath: kernelPath, RootfsPath: rootfsPath}
}

func (b *FirecrackerBackend) Name() string { return "firecracker" }

// Available requires Linux with KVM exposed and the firecracker binary on
// PATH, plus a configured kernel and rootfs image.
func (b *FirecrackerBackend) Available() bool {
	if _, err := os.Stat("/dev/kvm"); err != nil {
		return false
	}
	if _, err := exec.LookPath(b.BinPath); err != nil {
		return false
	}
	if b.KernelPath == "" || b.RootfsPath == "" {
		return false
	}
	if _, err := os.Stat(b.KernelPath); err != nil {
		return false
	}
	if _, err := os.Stat(b.RootfsPath); err != nil {
		return false
	}
	return true
}

func (b *FirecrackerBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	sockPath := fmt.Sprintf("/tmp/crustyclaw-fc-%s.sock", cfg.Label)
	os.Remove(sockPath)

	cmd := exec.CommandContext(ctx, b.BinPath, "--api-sock", sockPath)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return SandboxResult{}, &Error{Kind: Create, Message: "failed to launch firecracker VMM", Err: err}
	}
	defer func() {
		_ = cmd.Process.Kill()
		os.Remove(sockPath)
	}()

	client := newFirecrackerClient(sockPath)
	if err := client.waitForSocket(ctx, 5*time.Second); err != nil {
		return SandboxResult{}, &Error{Kind: Create, Message: "firecracker api socket never appeared", Err: err}
	}

	if err := client.putMachineConfig(cfg.Limits.CPU.MaxCores, cfg.Limits.Memory.MaxBytes/(1024*1024)); err != nil {
		return SandboxResult{}, &Error{Kind: Create, Message: "configure firecracker machine", Err: err}
	}
	if err := client.putBootSource(b.KernelPath, sandboxBootArgs(argv)); err != nil {
		return SandboxResult{}, &Error{Kind: Create, Message: "configure firecracker boot source", Err: err}
	}
	if err := client.putDrive("rootfs", b.RootfsPath, true, false); err != nil {
		return SandboxResult{}, &Error{Kind: Create, Message: "attach firecracker rootfs drive", Err: err}
	}
	if err := client.startInstance(); err != nil {
		return SandboxResult{}, &Error{Kind: Create, Message: "start firecracker instance", Err: err}
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if cfg.Limits.Timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, cfg.Limits.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-waitCtx.Done():
		_ = client.sendCtrlAltDel()
		return SandboxResult{}, NewTimeoutError(cfg.Limits.Timeout)
	case err := <-done:
		elapsed := time.Since(start)
		if err != nil {
			return SandboxResult{ExitCode: 1, Elapsed: elapsed}, nil
		}
		return SandboxResult{ExitCode: 0, Elapsed: elapsed}, nil
	}
}

// sandboxBootArgs builds the guest kernel command line that hands the
// sandboxed argv to the guest init, joined the way a Linux cmdline expects.
func sandboxBootArgs(argv []string) string {
	args := "console=ttyS0 reboot=k panic=1 pci=off"
	for _, a := range argv {
		args += " init.arg=" + a
	}
	return args
}
