package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
)

func TestFactoryCreatesIndependentProcessors(t *testing.T) {
	cfg := newTestConfig(t)
	br := newTestBridge(t)
	fatal := NewFatalErrorSlot()

	f := NewRecordProcessorFactory(cfg, func(context.Context, []CommittableRecord) error {
		return nil
	}, br, fatal)

	p1, ok := f.CreateProcessor().(*ShardRecordProcessor)
	require.True(t, ok)
	p2, ok := f.CreateProcessor().(*ShardRecordProcessor)
	require.True(t, ok)

	assert.NotSame(t, p1, p2)
	// shared worker state
	assert.Same(t, p1.bridge, p2.bridge)
	assert.Same(t, p1.fatal, p2.fatal)
	// per-shard state
	assert.NotSame(t, p1.shardEnd, p2.shardEnd)

	initProcessor(t, p1, "shardId-1")
	initProcessor(t, p2, "shardId-2")
	assert.Equal(t, "shardId-1", p1.shardID())
	assert.Equal(t, "shardId-2", p2.shardID())
}

func TestFactoryCreateProcessorForStream(t *testing.T) {
	cfg := newTestConfig(t)
	br := newTestBridge(t)

	f := NewRecordProcessorFactory(cfg, func(context.Context, []CommittableRecord) error {
		return nil
	}, br, NewFatalErrorSlot())

	p := f.CreateProcessorForStream(kcl.StreamIdentity{
		StreamName:          "streamName",
		AccountID:           "123456789012",
		StreamCreationEpoch: 1,
	})
	assert.NotNil(t, p)
}

func TestFactoryWithResultsQueue(t *testing.T) {
	cfg := newTestConfig(t)
	br := newTestBridge(t)
	results := make(chan CommittableRecord, 4)

	f := NewRecordProcessorFactory(cfg, func(context.Context, []CommittableRecord) error {
		return nil
	}, br, NewFatalErrorSlot()).
		WithContext(context.Background()).
		WithResultsQueue(results)

	p, ok := f.CreateProcessor().(*ShardRecordProcessor)
	require.True(t, ok)
	initProcessor(t, p, "shardId-0")

	p.ProcessRecords(batchInput(&fakeCheckpointer{}, false, "1"))
	assert.Len(t, results, 1)
}
