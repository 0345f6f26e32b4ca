// Package workpool bounds concurrent outbound work across all enrichers.
package workpool

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool limits how many tasks run at once. A single Pool is shared by every
// caller so the limit is global, not per caller. Tasks must not call Run on
// the same Pool, or they can wait on slots they themselves hold.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Size() int {
	return p.size
}

// PanicError is returned by Run when a task panicked. The remaining tasks
// still run to completion.
type PanicError struct {
	Task  int
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.Task, e.Value)
}

// Run calls fn for every index in [0, n) and waits for all of them. Tasks
// report failures through their own results; Run only fails when ctx is done
// before every task could be scheduled, or when a task panicked.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	var g errgroup.Group

	var err error
	for i := 0; i < n; i++ {
		if err = p.sem.Acquire(ctx, 1); err != nil {
			break
		}
		g.Go(func() (taskErr error) {
			defer p.sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					taskErr = &PanicError{Task: i, Value: r, Stack: debug.Stack()}
				}
			}()
			fn(ctx, i)
			return nil
		})
	}

	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}
	return err
}
