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

// Package processor adapts the scheduling runtime's synchronous lifecycle
// callbacks into an asynchronous, user-supplied processing pipeline with
// retrying checkpoint commits, bounded shard-end coordination, and a shared
// fatal-error slot.
//
// One ShardRecordProcessor owns one shard assignment. Its lifecycle work runs
// on the worker-shared bridge pool; the runtime goroutine blocks until each
// phase fully completes, because the runtime treats the callback's return as
// its synchronization point for "this phase is done".
package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streambridge/kinesis/clientlibrary/bridge"
	chk "github.com/streambridge/kinesis/clientlibrary/checkpoint"
	"github.com/streambridge/kinesis/clientlibrary/config"
	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
	"github.com/streambridge/kinesis/clientlibrary/metrics"
	"github.com/streambridge/kinesis/logger"
)

// ErrShardEndWaitTimeout is returned internally when the shard-end wait for
// in-flight records does not resolve within the configured timeout.
var ErrShardEndWaitTimeout = errors.New("processor: shard-end wait timed out")

// RecordsCallback is the user-supplied processing pipeline. It receives every
// delivered batch as committable records and runs on the worker-shared
// bridge pool. Returning an error is handled per the raise-on-error policy.
type RecordsCallback func(ctx context.Context, records []CommittableRecord) error

// shardContext is set exactly once at initialization and read thereafter.
type shardContext struct {
	shardID          string
	startingPosition kcl.ExtendedSequenceNumber
}

// ShardRecordProcessor implements interfaces.IShardRecordProcessor for one
// shard. The scheduling runtime serializes lifecycle calls per shard, so the
// state cell has a single writer; State is still safe to read concurrently.
type ShardRecordProcessor struct {
	ctx        context.Context
	cfg        *config.ProcessorConfiguration
	log        logger.Logger
	bridge     *bridge.Bridge
	fatal      *FatalErrorSlot
	callback   RecordsCallback
	monitoring metrics.MonitoringService
	results    chan CommittableRecord

	retry chk.RetryPolicy

	stateMu sync.Mutex
	state   ProcessorState

	shardCtx atomic.Pointer[shardContext]
	shardEnd *shardEndSignal
}

func newShardRecordProcessor(
	ctx context.Context,
	cfg *config.ProcessorConfiguration,
	callback RecordsCallback,
	br *bridge.Bridge,
	fatal *FatalErrorSlot,
	results chan CommittableRecord,
) *ShardRecordProcessor {
	mon := cfg.MonitoringService
	if mon == nil {
		mon = metrics.NoopMonitoringService{}
	}

	return &ShardRecordProcessor{
		ctx:        ctx,
		cfg:        cfg,
		log:        cfg.Logger,
		bridge:     br,
		fatal:      fatal,
		callback:   callback,
		monitoring: mon,
		results:    results,
		retry: chk.RetryPolicy{
			MaxRetries:    cfg.CheckpointMaxRetries,
			RetryInterval: cfg.CheckpointRetryInterval,
			Logger:        cfg.Logger,
		},
		state:    StateCreated,
		shardEnd: newShardEndSignal(),
	}
}

// State returns the processor's current lifecycle state.
func (p *ShardRecordProcessor) State() ProcessorState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

func (p *ShardRecordProcessor) transition(next ProcessorState) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if !p.state.canTransition(next) {
		return fmt.Errorf("processor: invalid transition %s -> %s", p.state, next)
	}
	p.state = next
	return nil
}

func (p *ShardRecordProcessor) shardID() string {
	if sc := p.shardCtx.Load(); sc != nil {
		return sc.shardID
	}
	return ""
}

// Initialize binds the processor to its shard and records the starting
// position. Called exactly once per shard assignment, before any records.
func (p *ShardRecordProcessor) Initialize(input *kcl.InitializationInput) {
	err := p.bridge.RunBlocking(p.ctx, func(context.Context) error {
		if err := p.transition(StateInitialized); err != nil {
			return err
		}
		sc := &shardContext{
			shardID:          input.ShardID,
			startingPosition: input.ExtendedSequenceNumber,
		}
		if !p.shardCtx.CompareAndSwap(nil, sc) {
			return fmt.Errorf("processor: shard context already set for shard %s", p.shardID())
		}
		p.log.Infof("Initialized processor for shard %s at position %q", input.ShardID, input.ExtendedSequenceNumber)
		return nil
	})
	if err != nil {
		p.handleError(input.ShardID, fmt.Errorf("initialize: %w", err))
	}
}

// ProcessRecords wraps the batch into committable records, runs the user
// callback on the bridge pool, and auto-commits the highest-sequence record
// when configured to. It returns to the runtime only after all of that has
// completed.
func (p *ShardRecordProcessor) ProcessRecords(input *kcl.ProcessRecordsInput) {
	shard := p.shardID()
	if err := p.transition(StateProcessing); err != nil {
		p.log.Warnf("Dropping batch of %d records for shard %s: %v", len(input.Records), shard, err)
		return
	}

	start := time.Now()
	records := p.wrapBatch(input)

	err := p.bridge.RunBlocking(p.ctx, func(ctx context.Context) error {
		p.offerResults(records)

		if err := p.callback(ctx, records); err != nil {
			return fmt.Errorf("processing callback: %w", err)
		}

		// The batch is no longer in flight once the callback has
		// acknowledged it; unblock a pending or future ShardEnded.
		if input.IsAtShardEnd {
			p.shardEnd.complete()
		}

		if p.cfg.AutoCommit {
			if idx := maxSequenceIndex(records); idx >= 0 {
				if err := p.commit(ctx, records[idx]); err != nil {
					return err
				}
			}
		}
		return nil
	})

	p.monitoring.RecordProcessRecordsTime(shard, float64(time.Since(start).Milliseconds()))
	p.monitoring.MillisBehindLatest(shard, float64(input.MillisBehindLatest))

	if err != nil {
		p.log.WithFields(logger.Fields{
			"shard":              shard,
			"batchSize":          len(input.Records),
			"millisBehindLatest": input.MillisBehindLatest,
			"isAtShardEnd":       input.IsAtShardEnd,
		}).Errorf("Batch processing failed: %v", err)
		p.handleError(shard, err)
		return
	}

	p.monitoring.IncrRecordsProcessed(shard, len(input.Records))
	var bytes int64
	for _, r := range input.Records {
		bytes += int64(len(r.Data))
	}
	p.monitoring.IncrBytesProcessed(shard, bytes)
}

// LeaseLost abandons the shard: another worker owns it now and will resume
// from the last committed checkpoint, so no further action is taken here.
func (p *ShardRecordProcessor) LeaseLost(_ *kcl.LeaseLostInput) {
	shard := p.shardID()
	err := p.bridge.RunBlocking(p.ctx, func(context.Context) error {
		return p.transition(StateLeaseLost)
	})
	if err != nil {
		p.log.Warnf("Lease-lost transition failed for shard %s: %v", shard, err)
		return
	}

	p.monitoring.LeaseLost(shard)
	p.monitoring.DeleteMetricMillisBehindLatest(shard)
	p.log.Infof("Lease lost for shard %s; abandoning unflushed work", shard)
}

// ShardEnded waits (optionally bounded) for in-flight records to be
// acknowledged, then commits the SHARD_END checkpoint uninterruptibly. That
// final commit is the acknowledgment that lets the runtime begin processing
// child shards.
func (p *ShardRecordProcessor) ShardEnded(input *kcl.ShardEndedInput) {
	shard := p.shardID()
	if err := p.transition(StateShardEnded); err != nil {
		p.log.Warnf("Shard-end transition failed for shard %s: %v", shard, err)
		return
	}

	if err := p.awaitShardDrain(); err != nil {
		if p.cfg.RaiseOnError {
			p.handleError(shard, fmt.Errorf("shard-end wait: %w", err))
			return
		}
		p.log.Warnf("Shard-end wait for shard %s failed (%v); committing SHARD_END after incomplete drain, records may be lost", shard, err)
	}

	// A partial shard-end commit is unrecoverable: the shard cannot be
	// re-leased to finish it. Run it on a non-cancellable context so neither
	// shutdown nor the timeout above can abort it mid-flight.
	uctx := context.WithoutCancel(p.ctx)
	err := p.bridge.RunBlocking(uctx, func(ctx context.Context) error {
		attempts := 0
		cerr := p.retry.Do(ctx, func(context.Context) error {
			attempts++
			return input.Checkpointer.Checkpoint(nil)
		})
		if attempts > 1 {
			p.monitoring.IncrCheckpointRetries(shard, attempts-1)
		}
		return cerr
	})
	if err != nil {
		p.handleError(shard, fmt.Errorf("shard-end checkpoint: %w", err))
		return
	}

	p.monitoring.ShardEnded(shard)
	p.monitoring.DeleteMetricMillisBehindLatest(shard)
	p.log.Infof("Shard %s fully processed; SHARD_END checkpoint committed", shard)
}

// ShutdownRequested is a graceful stop: the caller is expected to have
// drained work already, so no checkpoint is forced.
func (p *ShardRecordProcessor) ShutdownRequested(_ *kcl.ShutdownRequestedInput) {
	shard := p.shardID()
	err := p.bridge.RunBlocking(p.ctx, func(context.Context) error {
		return p.transition(StateShutdown)
	})
	if err != nil {
		p.log.Warnf("Shutdown transition failed for shard %s: %v", shard, err)
		return
	}
	p.log.Infof("Shutdown requested for shard %s", shard)
}

// wrapBatch converts the raw batch into committable records, flagging the
// highest-sequence record as last-in-shard when the batch closes the shard.
func (p *ShardRecordProcessor) wrapBatch(input *kcl.ProcessRecordsInput) []CommittableRecord {
	shard := p.shardID()
	records := make([]CommittableRecord, 0, len(input.Records))
	for _, raw := range input.Records {
		records = append(records, CommittableRecord{
			ShardID: shard,
			ExtendedSequenceNumber: kcl.ExtendedSequenceNumber{
				SequenceNumber: raw.SequenceNumber,
			},
			MillisBehindLatest: input.MillisBehindLatest,
			Record:             raw,
			processor:          p,
			checkpointer:       input.Checkpointer,
			shardEnd:           p.shardEnd,
		})
	}

	if input.IsAtShardEnd {
		if idx := maxSequenceIndex(records); idx >= 0 {
			records[idx].lastInShard = true
		}
	}
	return records
}

// commit checkpoints one record through the retry policy.
func (p *ShardRecordProcessor) commit(ctx context.Context, rec CommittableRecord) error {
	start := time.Now()
	attempts := 0
	err := p.retry.Do(ctx, func(context.Context) error {
		attempts++
		return rec.Checkpoint()
	})
	p.monitoring.RecordCheckpointTime(rec.ShardID, float64(time.Since(start).Milliseconds()))
	if attempts > 1 {
		p.monitoring.IncrCheckpointRetries(rec.ShardID, attempts-1)
	}
	if err != nil {
		return fmt.Errorf("checkpoint at %s: %w", rec.ExtendedSequenceNumber, err)
	}

	p.log.Debugf("Checkpointed shard %s at %s", rec.ShardID, rec.ExtendedSequenceNumber)
	return nil
}

// awaitShardDrain blocks until the shard-end signal fires, the configured
// timeout elapses, or the pipeline context is cancelled.
func (p *ShardRecordProcessor) awaitShardDrain() error {
	// An already-drained shard wins over a concurrent cancellation.
	select {
	case <-p.shardEnd.Done():
		return nil
	default:
	}

	var timeout <-chan time.Time
	if p.cfg.ShardEndWaitTimeout > 0 {
		t := time.NewTimer(p.cfg.ShardEndWaitTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-p.shardEnd.Done():
		return nil
	case <-timeout:
		return ErrShardEndWaitTimeout
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// offerResults offers each record to the observation queue without blocking.
// Dropping beats backpressuring the pipeline here.
func (p *ShardRecordProcessor) offerResults(records []CommittableRecord) {
	if p.results == nil {
		return
	}
	for _, rec := range records {
		select {
		case p.results <- rec:
		default:
			p.log.Debugf("Results queue full; dropped record %s from shard %s", rec.ExtendedSequenceNumber, rec.ShardID)
		}
	}
}

// handleError applies the raise-on-error policy to a processing failure.
// Cancellation caused by a pipeline shutdown is not a failure: the driver
// initiated it, so it must not complete the fatal slot.
func (p *ShardRecordProcessor) handleError(shard string, err error) {
	if errors.Is(err, context.Canceled) && p.ctx.Err() != nil {
		p.log.Infof("Processing for shard %s interrupted by shutdown: %v", shard, err)
		return
	}

	if !p.cfg.RaiseOnError {
		p.log.Warnf("Ignoring error for shard %s (raise-on-error disabled, records may be lost): %v", shard, err)
		return
	}

	wrapped := fmt.Errorf("shard %s: %w", shard, err)
	if p.fatal.TrySet(wrapped) {
		p.log.Errorf("Fatal error for shard %s, halting worker: %v", shard, err)
	} else {
		p.log.Errorf("Fatal error for shard %s (worker already failing): %v", shard, err)
	}
}
