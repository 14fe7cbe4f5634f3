package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"lookgen-gateway/pkg/logging/logging"

	"go.uber.org/zap"
)

// Scheduler runs work after the triggering request has been answered.
type Scheduler interface {
	Schedule(ctx context.Context, name string, task func(ctx context.Context))
}

// Background runs each task on its own goroutine with a context detached
// from the request, so a finished response never cancels the work. It has
// no pool and no queue limit.
type Background struct {
	wg       sync.WaitGroup
	inflight atomic.Int64
}

func NewBackground() *Background {
	return &Background{}
}

func (b *Background) Schedule(ctx context.Context, name string, task func(ctx context.Context)) {
	taskCtx := logging.WithFields(logging.Detach(ctx), zap.String("task", name))

	b.wg.Add(1)
	b.inflight.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.inflight.Add(-1)
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(taskCtx).Error("background task panicked",
					zap.String("panic", fmt.Sprint(rec)),
					zap.Stack("stack"),
				)
			}
		}()
		task(taskCtx)
	}()
}

func (b *Background) InFlight() int64 {
	return b.inflight.Load()
}

// Drain waits for running tasks or until ctx is done.
func (b *Background) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain background tasks (%d still running): %w", b.InFlight(), ctx.Err())
	}
}
