/*
 * Copyright (c) 2018 VMware, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy of this software and
 * associated documentation files (the "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is furnished to do
 * so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all copies or substantial
 * portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT
 * NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
 * WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 */

// Package bridge crosses from the scheduling runtime's synchronous call
// stack into the library's asynchronous processing pipeline.
//
// The runtime invokes lifecycle callbacks on its own per-shard goroutines and
// uses their return as the "phase done" signal. All pipeline work (user
// callbacks, checkpoint I/O) instead runs on a bounded pool owned by one
// Bridge, shared by every shard processor of a worker. RunBlocking is the
// single crossing point: it submits a task to the pool and parks the calling
// goroutine until the task finishes, re-raising the task's failure to the
// caller.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrBridgeClosed is returned by RunBlocking after Close has been called.
var ErrBridgeClosed = errors.New("bridge: closed")

// DefaultWorkers is the pool size used when NewBridge receives a
// non-positive worker count.
const DefaultWorkers = 8

type task struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Bridge owns the shared execution context for one worker's shard
// processors. Task submission is safe from any number of goroutines.
type Bridge struct {
	tasks chan task
	quit  chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewBridge starts a Bridge with the given number of pool goroutines.
// A non-positive count falls back to DefaultWorkers.
func NewBridge(workers int) *Bridge {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	b := &Bridge{
		tasks: make(chan task),
		quit:  make(chan struct{}),
	}
	b.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go b.worker()
	}
	return b
}

func (b *Bridge) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.quit:
			return
		case t := <-b.tasks:
			t.done <- b.run(t)
		}
	}
}

// run executes one task, converting a panic into an error so a misbehaving
// user callback cannot take down the pool goroutine.
func (b *Bridge) run(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge: task panic: %v", r)
		}
	}()
	return t.fn(t.ctx)
}

// RunBlocking submits fn to the pool and blocks the calling goroutine until
// fn completes, returning fn's error. fn receives ctx and should honor its
// cancellation.
//
// The wait itself is also bounded by ctx: if ctx is cancelled before fn
// completes, RunBlocking returns ctx's error while fn keeps running on the
// pool (fn observes the same cancellation through its ctx). Passing a
// non-cancellable context, e.g. context.WithoutCancel, makes the call
// uninterruptible: RunBlocking then returns only once fn has fully finished.
func (b *Bridge) RunBlocking(ctx context.Context, fn func(context.Context) error) error {
	t := task{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case b.tasks <- t:
	case <-b.quit:
		return ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the pool and waits for its goroutines to exit. Tasks already
// running finish first; subsequent RunBlocking calls return ErrBridgeClosed.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		close(b.quit)
	})
	b.wg.Wait()
}
