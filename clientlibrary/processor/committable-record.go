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
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"

	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
)

// CommittableRecord pairs one stream record with the shard context needed to
// request a checkpoint at its position. Values are immutable after the batch
// is assembled; the lastInShard flag is set on at most one record per shard,
// while the batch is built.
type CommittableRecord struct {
	// ShardID is the shard the record was read from.
	ShardID string

	// ExtendedSequenceNumber is the record's position in the shard lineage.
	ExtendedSequenceNumber kcl.ExtendedSequenceNumber

	// MillisBehindLatest is the batch's lag behind the stream tip when read.
	MillisBehindLatest int64

	// Record is the raw stream record.
	Record types.Record

	// processor identifies the shard processor that produced the record.
	// Used only to group records of the same shard, never dereferenced for
	// control.
	processor *ShardRecordProcessor

	// checkpointer is the batch's checkpointer handle.
	checkpointer kcl.IRecordProcessorCheckpointer

	// lastInShard marks the final record of the shard.
	lastInShard bool

	// shardEnd is the owning processor's shard-end signal, carried so
	// downstream holders of the record can await shard drain.
	shardEnd *shardEndSignal
}

// Checkpoint commits progress at this record's sequence number through the
// checkpointer handle of the batch it arrived in.
func (r CommittableRecord) Checkpoint() error {
	return r.checkpointer.Checkpoint(r.ExtendedSequenceNumber.SequenceNumber)
}

// IsLastInShard reports whether this is the final record of its shard.
func (r CommittableRecord) IsLastInShard() bool {
	return r.lastInShard
}

// SameShardAs reports whether both records came from the same processor
// instance, i.e. the same shard assignment.
func (r CommittableRecord) SameShardAs(other CommittableRecord) bool {
	return r.processor == other.processor
}

// maxSequenceIndex returns the index of the record with the highest extended
// sequence number, ordering by sequence token rather than arrival order.
// Returns -1 for an empty batch.
func maxSequenceIndex(records []CommittableRecord) int {
	maxIdx := -1
	for i, r := range records {
		if maxIdx < 0 || r.ExtendedSequenceNumber.Compare(records[maxIdx].ExtendedSequenceNumber) > 0 {
			maxIdx = i
		}
	}
	return maxIdx
}

// shardEndSignal is a single-assignment completion cell, private to one shard
// processor, completed exactly once when the shard's in-flight records have
// been acknowledged by the user callback.
type shardEndSignal struct {
	once sync.Once
	done chan struct{}
}

func newShardEndSignal() *shardEndSignal {
	return &shardEndSignal{done: make(chan struct{})}
}

func (s *shardEndSignal) complete() {
	s.once.Do(func() { close(s.done) })
}

func (s *shardEndSignal) Done() <-chan struct{} {
	return s.done
}
