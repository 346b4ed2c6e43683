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

package checkpoint

import (
	"context"
	"time"

	"github.com/streambridge/kinesis/logger"
)

// RetryPolicy retries a checkpoint commit with a fixed backoff. Both commit
// paths (per-batch auto-commit and the shard-end final checkpoint) run
// through the same policy so checkpoint durability behaves uniformly
// regardless of what triggered the commit.
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first failure, so an
	// operation runs at most MaxRetries+1 times.
	MaxRetries int

	// RetryInterval is the fixed wait between attempts.
	RetryInterval time.Duration

	// Logger records each failed attempt. Must not be nil.
	Logger logger.Logger
}

// Do runs op, re-attempting after RetryInterval on failure until op succeeds
// or MaxRetries re-attempts have been spent, then returns op's final error.
// The backoff sleep honors ctx cancellation; a non-cancellable ctx (e.g.
// context.WithoutCancel) makes the whole sequence uninterruptible.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}

		if attempt == p.MaxRetries {
			break
		}
		p.Logger.WithFields(logger.Fields{
			"attempt":    attempt + 1,
			"maxRetries": p.MaxRetries,
		}).Warnf("Checkpoint attempt failed, retrying in %s: %v", p.RetryInterval, err)

		if werr := p.wait(ctx); werr != nil {
			return werr
		}
	}
	return err
}

func (p RetryPolicy) wait(ctx context.Context) error {
	if p.RetryInterval <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(p.RetryInterval)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
