package nodectl

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// workerPool (C8) is an unbounded pool of short-lived background tasks used
// by tablespaces for asynchronous work. A thin wrapper over errgroup,
// mirroring the teacher's task runner: tasks are not guaranteed to run if
// the pool is shutting down; rejections are logged, not propagated.
type workerPool struct {
	eg       *errgroup.Group
	ctx      context.Context
	shutdown context.CancelFunc
}

// newWorkerPool creates a pool bound to parent's lifetime. limit caps the
// number of concurrently running tasks; zero or negative means unbounded,
// matching errgroup.SetLimit's convention.
func newWorkerPool(parent context.Context, limit int) *workerPool {
	ctx, cancel := context.WithCancel(parent)
	eg, ctx2 := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	return &workerPool{eg: eg, ctx: ctx2, shutdown: cancel}
}

// submit offers task to the pool. Workers carry no per-request identity and
// must not retain references to the Manager past their own completion; task
// is handed only the context, never the Manager or Capability.
func (p *workerPool) submit(ctx context.Context, task func(ctx context.Context) error) {
	select {
	case <-p.ctx.Done():
		slog.Warn("worker pool submit rejected: pool is shutting down")
		return
	default:
	}

	p.eg.Go(func() error {
		if err := task(p.ctx); err != nil {
			slog.Warn("worker pool task failed", "error", err)
		}
		return nil
	})
}

// close signals shutdown and waits for in-flight tasks to finish. Errors
// from individual tasks are already logged and swallowed by submit, so Wait
// here only ever surfaces errgroup's own context-cancellation bookkeeping.
func (p *workerPool) close() {
	p.shutdown()
	_ = p.eg.Wait()
}
