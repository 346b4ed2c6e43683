package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"

	"github.com/streambridge/kinesis/clientlibrary/bridge"
	"github.com/streambridge/kinesis/clientlibrary/config"
	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
)

// fakeCheckpointer records Checkpoint calls and can be programmed to fail
// the first failFirst attempts.
type fakeCheckpointer struct {
	mu        sync.Mutex
	calls     []*string
	failFirst int
	err       error
}

func (f *fakeCheckpointer) Checkpoint(sequenceNumber *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sequenceNumber)
	if f.failFirst > 0 {
		f.failFirst--
		return f.err
	}
	return nil
}

func (f *fakeCheckpointer) PrepareCheckpoint(sequenceNumber *string) (kcl.IPreparedCheckpointer, error) {
	return nil, nil
}

func (f *fakeCheckpointer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// lastCall returns the sequence number of the most recent Checkpoint call,
// or "<none>" when no call was made. A nil sequence renders as "<nil>".
func (f *fakeCheckpointer) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return "<none>"
	}
	last := f.calls[len(f.calls)-1]
	if last == nil {
		return "<nil>"
	}
	return *last
}

func newTestConfig(t *testing.T) *config.ProcessorConfiguration {
	t.Helper()
	return config.NewProcessorConfig("appName", "streamName", "worker-1").
		WithCheckpointMaxRetries(5).
		WithCheckpointRetryInterval(0)
}

func newTestBridge(t *testing.T) *bridge.Bridge {
	t.Helper()
	br := bridge.NewBridge(2)
	t.Cleanup(br.Close)
	return br
}

// testProcessor builds a processor bound to a fresh bridge and fatal slot,
// both torn down with the test.
func testProcessor(t *testing.T, cfg *config.ProcessorConfiguration, callback RecordsCallback) (*ShardRecordProcessor, *FatalErrorSlot) {
	t.Helper()

	br := newTestBridge(t)
	fatal := NewFatalErrorSlot()
	p := newShardRecordProcessor(context.Background(), cfg, callback, br, fatal, nil)
	return p, fatal
}

func initProcessor(t *testing.T, p *ShardRecordProcessor, shardID string) {
	t.Helper()
	p.Initialize(&kcl.InitializationInput{
		ShardID:                shardID,
		ExtendedSequenceNumber: kcl.NewExtendedSequenceNumber("0"),
	})
}

func makeRecords(sequenceNumbers ...string) []types.Record {
	now := time.Now()
	records := make([]types.Record, 0, len(sequenceNumbers))
	for _, sn := range sequenceNumbers {
		records = append(records, types.Record{
			SequenceNumber:              aws.String(sn),
			PartitionKey:                aws.String("pk"),
			Data:                        []byte("payload-" + sn),
			ApproximateArrivalTimestamp: &now,
		})
	}
	return records
}

func batchInput(ckp kcl.IRecordProcessorCheckpointer, atShardEnd bool, sequenceNumbers ...string) *kcl.ProcessRecordsInput {
	return &kcl.ProcessRecordsInput{
		Records:            makeRecords(sequenceNumbers...),
		Checkpointer:       ckp,
		MillisBehindLatest: 100,
		IsAtShardEnd:       atShardEnd,
	}
}
