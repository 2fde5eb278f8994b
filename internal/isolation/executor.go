package isolation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Executor runs a batch of sandboxes concurrently, never exceeding
// maxConcurrent in flight at once. It is the "caller" referenced by
// Backend's doc comment: backends themselves do no concurrency limiting.
type Executor struct {
	tokens chan struct{}
}

// NewExecutor returns an Executor that admits at most maxConcurrent
// concurrent Execute calls. maxConcurrent <= 0 is treated as 1.
func NewExecutor(maxConcurrent int) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	tokens := make(chan struct{}, maxConcurrent)
	for i := 0; i < maxConcurrent; i++ {
		tokens <- struct{}{}
	}
	return &Executor{tokens: tokens}
}

// Job is one sandboxed invocation to run as part of a batch.
type Job struct {
	Sandbox *Sandbox
	Argv    []string
}

// RunOne runs a single job, blocking until a token is available or ctx is
// canceled.
func (e *Executor) RunOne(ctx context.Context, job Job) (SandboxResult, error) {
	select {
	case <-ctx.Done():
		return SandboxResult{}, ctx.Err()
	case <-e.tokens:
	}
	defer func() { e.tokens <- struct{}{} }()
	return job.Sandbox.Execute(ctx, job.Argv)
}

// RunBatch runs every job, admitting at most the Executor's configured
// concurrency at once, and returns one SandboxResult per job in the same
// order as jobs. If any job's context is canceled or a job returns an
// error, RunBatch returns that error after every in-flight job completes;
// results for jobs that never ran are left as the zero SandboxResult.
func (e *Executor) RunBatch(ctx context.Context, jobs []Job) ([]SandboxResult, error) {
	results := make([]SandboxResult, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case <-e.tokens:
			}
			defer func() { e.tokens <- struct{}{} }()

			result, err := job.Sandbox.Execute(gCtx, job.Argv)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
