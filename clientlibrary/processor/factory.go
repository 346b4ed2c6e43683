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

package processor

import (
	"context"

	"github.com/streambridge/kinesis/clientlibrary/bridge"
	"github.com/streambridge/kinesis/clientlibrary/config"
	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
)

// RecordProcessorFactory creates one ShardRecordProcessor per shard
// assignment. All processors it creates share the worker's bridge pool,
// fatal error slot, and optional results queue; everything else is
// per-shard. Safe for concurrent CreateProcessor calls.
type RecordProcessorFactory struct {
	ctx      context.Context
	cfg      *config.ProcessorConfiguration
	callback RecordsCallback
	bridge   *bridge.Bridge
	fatal    *FatalErrorSlot
	results  chan CommittableRecord
}

// NewRecordProcessorFactory wires a factory to the worker-shared bridge and
// fatal error slot.
func NewRecordProcessorFactory(
	cfg *config.ProcessorConfiguration,
	callback RecordsCallback,
	br *bridge.Bridge,
	fatal *FatalErrorSlot,
) *RecordProcessorFactory {
	return &RecordProcessorFactory{
		ctx:      context.Background(),
		cfg:      cfg,
		callback: callback,
		bridge:   br,
		fatal:    fatal,
	}
}

// WithContext sets the base context for the pipeline work of all processors
// created by this factory. Cancelling it cancels callbacks and non-final
// checkpoint commits.
func (f *RecordProcessorFactory) WithContext(ctx context.Context) *RecordProcessorFactory {
	f.ctx = ctx
	return f
}

// WithResultsQueue attaches the worker-shared bounded observation queue.
func (f *RecordProcessorFactory) WithResultsQueue(q chan CommittableRecord) *RecordProcessorFactory {
	f.results = q
	return f
}

// CreateProcessor returns a fresh processor for a shard of the configured stream.
func (f *RecordProcessorFactory) CreateProcessor() kcl.IShardRecordProcessor {
	return newShardRecordProcessor(f.ctx, f.cfg, f.callback, f.bridge, f.fatal, f.results)
}

// CreateProcessorForStream returns a fresh processor for a multi-stream
// assignment. The identity is deliberately ignored: one processor
// implementation serves both assignment paths.
func (f *RecordProcessorFactory) CreateProcessorForStream(_ kcl.StreamIdentity) kcl.IShardRecordProcessor {
	return f.CreateProcessor()
}
