package isolation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type concurrencyTrackingBackend struct {
	inFlight  int32
	maxSeen   int32
	sleep     time.Duration
}

func (b *concurrencyTrackingBackend) Name() string     { return "tracking" }
func (b *concurrencyTrackingBackend) Available() bool  { return true }
func (b *concurrencyTrackingBackend) Execute(ctx context.Context, cfg SandboxConfig, argv []string) (SandboxResult, error) {
	cur := atomic.AddInt32(&b.inFlight, 1)
	defer atomic.AddInt32(&b.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&b.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&b.maxSeen, seen, cur) {
			break
		}
	}
	time.Sleep(b.sleep)
	return SandboxResult{ExitCode: 0}, nil
}

func newSandboxFor(t *testing.T, backend Backend) *Sandbox {
	t.Helper()
	sb, err := NewSandbox(NewSandboxConfig("batch"), backend)
	require.NoError(t, err)
	return sb
}

func TestExecutor_RunBatch_NeverExceedsMaxConcurrent(t *testing.T) {
	backend := &concurrencyTrackingBackend{sleep: 20 * time.Millisecond}
	sb := newSandboxFor(t, backend)

	exec := NewExecutor(2)
	jobs := make([]Job, 6)
	for i := range jobs {
		jobs[i] = Job{Sandbox: sb, Argv: []string{"true"}}
	}

	results, err := exec.RunBatch(context.Background(), jobs)
	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&backend.maxSeen)), 2)
}

func TestExecutor_RunOne_BlocksUntilTokenAvailable(t *testing.T) {
	backend := &concurrencyTrackingBackend{sleep: 10 * time.Millisecond}
	sb := newSandboxFor(t, backend)
	exec := NewExecutor(1)

	_, err := exec.RunOne(context.Background(), Job{Sandbox: sb, Argv: []string{"true"}})
	require.NoError(t, err)
	_, err = exec.RunOne(context.Background(), Job{Sandbox: sb, Argv: []string{"true"}})
	require.NoError(t, err)
}

func TestExecutor_RunOne_RespectsCanceledContext(t *testing.T) {
	backend := &concurrencyTrackingBackend{sleep: time.Second}
	sb := newSandboxFor(t, backend)
	exec := NewExecutor(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := exec.RunOne(ctx, Job{Sandbox: sb, Argv: []string{"true"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewExecutor_NonPositiveTreatedAsOne(t *testing.T) {
	exec := NewExecutor(0)
	assert.Equal(t, 1, cap(exec.tokens))
}
