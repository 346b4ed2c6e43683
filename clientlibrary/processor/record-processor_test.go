package processor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
)

func TestInitialize(t *testing.T) {
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		return nil
	})

	initProcessor(t, p, "shardId-000000000001")

	assert.Equal(t, StateInitialized, p.State())
	assert.Equal(t, "shardId-000000000001", p.shardID())
	assert.NoError(t, fatal.Err())
}

func TestProcessRecords_SuccessCheckpointsHighestSequence(t *testing.T) {
	var seen []string
	p, fatal := testProcessor(t, newTestConfig(t), func(_ context.Context, records []CommittableRecord) error {
		for _, r := range records {
			seen = append(seen, r.ExtendedSequenceNumber.String())
		}
		return nil
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(ckp, false, "1", "2"))

	assert.Equal(t, []string{"1", "2"}, seen)
	assert.Equal(t, StateProcessing, p.State())
	assert.NoError(t, fatal.Err())
	require.Equal(t, 1, ckp.callCount())
	assert.Equal(t, "2", ckp.lastCall())
}

func TestProcessRecords_CallbackErrorIsFatalAndSkipsCheckpoint(t *testing.T) {
	boom := errors.New("pipeline exploded")
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		return boom
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(ckp, false, "1", "2"))

	require.Error(t, fatal.Err())
	assert.ErrorIs(t, fatal.Err(), boom)
	assert.Equal(t, 0, ckp.callCount())

	select {
	case <-fatal.Done():
	default:
		t.Fatal("fatal slot not completed")
	}
}

func TestProcessRecords_CallbackPanicIsContained(t *testing.T) {
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		panic("user code misbehaved")
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	assert.NotPanics(t, func() {
		p.ProcessRecords(batchInput(ckp, false, "1"))
	})

	require.Error(t, fatal.Err())
	assert.Contains(t, fatal.Err().Error(), "panic")
	assert.Equal(t, 0, ckp.callCount())
}

func TestProcessRecords_CallbackErrorToleratedWhenRaiseDisabled(t *testing.T) {
	cfg := newTestConfig(t).WithRaiseOnError(false)
	batches := 0
	p, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		batches++
		if batches == 1 {
			return errors.New("transient pipeline failure")
		}
		return nil
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(ckp, false, "1"))
	// the failed batch is skipped, not escalated
	assert.NoError(t, fatal.Err())
	assert.Equal(t, 0, ckp.callCount())

	p.ProcessRecords(batchInput(ckp, false, "2"))

	assert.Equal(t, 2, batches)
	assert.Equal(t, StateProcessing, p.State())
	assert.NoError(t, fatal.Err())
	require.Equal(t, 1, ckp.callCount())
	assert.Equal(t, "2", ckp.lastCall())
}

func TestProcessRecords_CheckpointFailureThenSuccessWithRaiseDisabled(t *testing.T) {
	cfg := newTestConfig(t).WithRaiseOnError(false)
	p, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{failFirst: 1, err: errors.New("store unavailable")}
	p.ProcessRecords(batchInput(ckp, false, "1", "2"))

	// one failed attempt plus the retry that succeeded
	assert.Equal(t, 2, ckp.callCount())
	assert.Equal(t, "2", ckp.lastCall())
	assert.NoError(t, fatal.Err())
}

func TestProcessRecords_CheckpointExhaustionIsFatal(t *testing.T) {
	cfg := newTestConfig(t).WithCheckpointMaxRetries(2)
	p, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	storeErr := errors.New("store down")
	ckp := &fakeCheckpointer{failFirst: 10, err: storeErr}
	p.ProcessRecords(batchInput(ckp, false, "1"))

	// first attempt plus MaxRetries re-attempts
	assert.Equal(t, 3, ckp.callCount())
	require.Error(t, fatal.Err())
	assert.ErrorIs(t, fatal.Err(), storeErr)
}

func TestProcessRecords_AutoCommitDisabled(t *testing.T) {
	cfg := newTestConfig(t).WithAutoCommit(false)
	p, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(ckp, false, "1", "2"))

	assert.Equal(t, 0, ckp.callCount())
	assert.NoError(t, fatal.Err())
}

func TestProcessRecords_ManualCheckpointThroughRecord(t *testing.T) {
	cfg := newTestConfig(t).WithAutoCommit(false)
	var committed []CommittableRecord
	p, fatal := testProcessor(t, cfg, func(_ context.Context, records []CommittableRecord) error {
		committed = records
		return nil
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(ckp, false, "7"))

	require.Len(t, committed, 1)
	require.NoError(t, committed[0].Checkpoint())
	assert.Equal(t, 1, ckp.callCount())
	assert.Equal(t, "7", ckp.lastCall())
	assert.NoError(t, fatal.Err())
}

func TestProcessRecords_EmptyBatchCommitsNothing(t *testing.T) {
	invoked := false
	p, fatal := testProcessor(t, newTestConfig(t), func(_ context.Context, records []CommittableRecord) error {
		invoked = true
		assert.Empty(t, records)
		return nil
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(ckp, false))

	assert.True(t, invoked)
	assert.Equal(t, 0, ckp.callCount())
	assert.NoError(t, fatal.Err())
}

func TestProcessRecords_ShutdownCancellationIsNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	entered := make(chan struct{})
	p, fatal := testProcessor(t, newTestConfig(t), func(cctx context.Context, _ []CommittableRecord) error {
		close(entered)
		<-cctx.Done()
		return cctx.Err()
	})
	p.ctx = ctx
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	done := make(chan struct{})
	go func() {
		p.ProcessRecords(batchInput(ckp, false, "1"))
		close(done)
	}()

	// cancel the pipeline while the batch is in flight, as Shutdown does
	<-entered
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ProcessRecords did not return after cancellation")
	}

	assert.NoError(t, fatal.Err())
	select {
	case <-fatal.Done():
		t.Fatal("graceful shutdown must not complete the fatal slot")
	default:
	}
	assert.Equal(t, 0, ckp.callCount())
}

func TestProcessRecords_DroppedAfterTerminalState(t *testing.T) {
	var calls atomic.Int32
	p, _ := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		calls.Add(1)
		return nil
	})
	initProcessor(t, p, "shardId-0")

	p.LeaseLost(&kcl.LeaseLostInput{})
	require.Equal(t, StateLeaseLost, p.State())

	ckp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(ckp, false, "1"))

	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, ckp.callCount())
	assert.Equal(t, StateLeaseLost, p.State())
}

func TestProcessRecords_LastInShardFlaggedOnHighestSequence(t *testing.T) {
	var got []CommittableRecord
	p, _ := testProcessor(t, newTestConfig(t), func(_ context.Context, records []CommittableRecord) error {
		got = records
		return nil
	})
	initProcessor(t, p, "shardId-0")

	// arrival order deliberately not sequence order
	p.ProcessRecords(batchInput(&fakeCheckpointer{}, true, "1", "3", "2"))

	require.Len(t, got, 3)
	flagged := 0
	for _, r := range got {
		if r.IsLastInShard() {
			flagged++
			assert.Equal(t, "3", r.ExtendedSequenceNumber.String())
		}
	}
	assert.Equal(t, 1, flagged)
}

func TestProcessRecords_NoLastInShardFlagMidShard(t *testing.T) {
	var got []CommittableRecord
	p, _ := testProcessor(t, newTestConfig(t), func(_ context.Context, records []CommittableRecord) error {
		got = records
		return nil
	})
	initProcessor(t, p, "shardId-0")

	p.ProcessRecords(batchInput(&fakeCheckpointer{}, false, "1", "2"))

	require.Len(t, got, 2)
	for _, r := range got {
		assert.False(t, r.IsLastInShard())
	}
}

func TestShardEnded_CommitsShardEndAfterFinalBatch(t *testing.T) {
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	batchCkp := &fakeCheckpointer{}
	p.ProcessRecords(batchInput(batchCkp, true, "1", "2"))

	endCkp := &fakeCheckpointer{}
	p.ShardEnded(&kcl.ShardEndedInput{Checkpointer: endCkp})

	assert.Equal(t, StateShardEnded, p.State())
	assert.NoError(t, fatal.Err())
	require.Equal(t, 1, endCkp.callCount())
	assert.Equal(t, "<nil>", endCkp.lastCall())
}

func TestShardEnded_EmptyFinalBatchStillDrains(t *testing.T) {
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	// shard closed with no trailing data
	p.ProcessRecords(batchInput(&fakeCheckpointer{}, true))

	endCkp := &fakeCheckpointer{}
	p.ShardEnded(&kcl.ShardEndedInput{Checkpointer: endCkp})

	assert.NoError(t, fatal.Err())
	assert.Equal(t, 1, endCkp.callCount())
}

func TestShardEnded_WaitsForInFlightBatch(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		close(entered)
		<-release
		return nil
	})
	initProcessor(t, p, "shardId-0")

	processed := make(chan struct{})
	go func() {
		p.ProcessRecords(batchInput(&fakeCheckpointer{}, true, "1"))
		close(processed)
	}()

	ended := make(chan struct{})
	endCkp := &fakeCheckpointer{}
	go func() {
		// retire the shard only once the final batch is in flight
		<-entered
		p.ShardEnded(&kcl.ShardEndedInput{Checkpointer: endCkp})
		close(ended)
	}()

	select {
	case <-ended:
		t.Fatal("ShardEnded returned while the final batch was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("ShardEnded did not finish after the final batch drained")
	}
	<-processed

	assert.NoError(t, fatal.Err())
	assert.Equal(t, 1, endCkp.callCount())
}

func TestShardEnded_TimeoutIsFatalWhenRaising(t *testing.T) {
	cfg := newTestConfig(t).WithShardEndWaitTimeout(20 * time.Millisecond)
	p, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	// no shard-end batch was ever acknowledged, so the drain cannot resolve
	endCkp := &fakeCheckpointer{}
	p.ShardEnded(&kcl.ShardEndedInput{Checkpointer: endCkp})

	require.Error(t, fatal.Err())
	assert.ErrorIs(t, fatal.Err(), ErrShardEndWaitTimeout)
	assert.Equal(t, 0, endCkp.callCount())
}

func TestShardEnded_TimeoutStillCommitsWhenNotRaising(t *testing.T) {
	cfg := newTestConfig(t).
		WithShardEndWaitTimeout(20 * time.Millisecond).
		WithRaiseOnError(false)
	p, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	endCkp := &fakeCheckpointer{}
	p.ShardEnded(&kcl.ShardEndedInput{Checkpointer: endCkp})

	assert.NoError(t, fatal.Err())
	require.Equal(t, 1, endCkp.callCount())
	assert.Equal(t, "<nil>", endCkp.lastCall())
}

func TestShardEnded_FinalCheckpointRetries(t *testing.T) {
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")
	p.ProcessRecords(batchInput(&fakeCheckpointer{}, true, "1"))

	endCkp := &fakeCheckpointer{failFirst: 2, err: errors.New("store flaky")}
	p.ShardEnded(&kcl.ShardEndedInput{Checkpointer: endCkp})

	assert.NoError(t, fatal.Err())
	assert.Equal(t, 3, endCkp.callCount())
}

func TestShardEnded_FinalCheckpointSurvivesCancelledPipeline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := newTestConfig(t)
	p, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		return nil
	})
	p.ctx = ctx
	initProcessor(t, p, "shardId-0")
	p.ProcessRecords(batchInput(&fakeCheckpointer{}, true, "1"))

	// a shutdown mid-retirement must not abort the SHARD_END commit
	cancel()

	endCkp := &fakeCheckpointer{}
	p.ShardEnded(&kcl.ShardEndedInput{Checkpointer: endCkp})

	assert.NoError(t, fatal.Err())
	assert.Equal(t, 1, endCkp.callCount())
}

func TestLeaseLost(t *testing.T) {
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")
	p.ProcessRecords(batchInput(&fakeCheckpointer{}, false, "1"))

	p.LeaseLost(&kcl.LeaseLostInput{})

	assert.Equal(t, StateLeaseLost, p.State())
	assert.NoError(t, fatal.Err())
}

func TestShutdownRequested(t *testing.T) {
	p, fatal := testProcessor(t, newTestConfig(t), func(context.Context, []CommittableRecord) error {
		return nil
	})
	initProcessor(t, p, "shardId-0")

	ckp := &fakeCheckpointer{}
	p.ShutdownRequested(&kcl.ShutdownRequestedInput{Checkpointer: ckp})

	assert.Equal(t, StateShutdown, p.State())
	// graceful stop never forces a checkpoint
	assert.Equal(t, 0, ckp.callCount())
	assert.NoError(t, fatal.Err())
}

func TestFatalErrorSharedAcrossShards(t *testing.T) {
	cfg := newTestConfig(t)
	boom := errors.New("shard one failed")
	p1, fatal := testProcessor(t, cfg, func(context.Context, []CommittableRecord) error {
		return boom
	})
	p2 := newShardRecordProcessor(context.Background(), cfg, func(context.Context, []CommittableRecord) error {
		return nil
	}, p1.bridge, fatal, nil)

	initProcessor(t, p1, "shardId-1")
	initProcessor(t, p2, "shardId-2")

	p1.ProcessRecords(batchInput(&fakeCheckpointer{}, false, "1"))

	require.Error(t, fatal.Err())
	assert.ErrorIs(t, fatal.Err(), boom)
	assert.Contains(t, fatal.Err().Error(), "shardId-1")
}

func TestResultsQueueReceivesRecords(t *testing.T) {
	cfg := newTestConfig(t)
	results := make(chan CommittableRecord, 10)

	br := newTestBridge(t)
	fatal := NewFatalErrorSlot()
	p := newShardRecordProcessor(context.Background(), cfg, func(context.Context, []CommittableRecord) error {
		return nil
	}, br, fatal, results)
	initProcessor(t, p, "shardId-0")

	p.ProcessRecords(batchInput(&fakeCheckpointer{}, false, "1", "2"))

	require.Len(t, results, 2)
	first := <-results
	second := <-results
	assert.Equal(t, "1", first.ExtendedSequenceNumber.String())
	assert.Equal(t, "2", second.ExtendedSequenceNumber.String())
	assert.True(t, first.SameShardAs(second))
}

func TestResultsQueueFullDropsInsteadOfBlocking(t *testing.T) {
	cfg := newTestConfig(t)
	results := make(chan CommittableRecord, 1)

	br := newTestBridge(t)
	fatal := NewFatalErrorSlot()
	p := newShardRecordProcessor(context.Background(), cfg, func(context.Context, []CommittableRecord) error {
		return nil
	}, br, fatal, results)
	initProcessor(t, p, "shardId-0")

	done := make(chan struct{})
	go func() {
		p.ProcessRecords(batchInput(&fakeCheckpointer{}, false, "1", "2", "3"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ProcessRecords blocked on a full results queue")
	}

	assert.Len(t, results, 1)
	assert.NoError(t, fatal.Err())
}
