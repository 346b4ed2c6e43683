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

package worker

import (
	"github.com/aws/aws-sdk-go-v2/aws"

	chk "github.com/streambridge/kinesis/clientlibrary/checkpoint"
	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
	par "github.com/streambridge/kinesis/clientlibrary/partition"
)

type (
	// PreparedCheckpointer holds a checkpoint prepared at a specific sequence
	// number. It delegates to an IRecordProcessorCheckpointer for commit, so
	// prepared checkpoints follow the same persistence path.
	PreparedCheckpointer struct {
		pendingCheckpointSequenceNumber *kcl.ExtendedSequenceNumber
		checkpointer                    kcl.IRecordProcessorCheckpointer
	}

	// RecordProcessorCheckpointer exposes a checkpoint store as the
	// checkpointer handle passed to record processors. Schedulers embedding
	// this library create one instance per shard assignment.
	RecordProcessorCheckpointer struct {
		shard *par.ShardStatus
		store chk.Checkpointer
	}
)

// NewRecordProcessorCheckpointer creates a checkpointer handle for the given
// shard that persists progress via the provided store.
func NewRecordProcessorCheckpointer(shard *par.ShardStatus, store chk.Checkpointer) kcl.IRecordProcessorCheckpointer {
	return &RecordProcessorCheckpointer{
		shard: shard,
		store: store,
	}
}

func (pc *PreparedCheckpointer) GetPendingCheckpoint() *kcl.ExtendedSequenceNumber {
	return pc.pendingCheckpointSequenceNumber
}

func (pc *PreparedCheckpointer) Checkpoint() error {
	if pc.pendingCheckpointSequenceNumber == nil {
		return pc.checkpointer.Checkpoint(nil)
	}
	return pc.checkpointer.Checkpoint(pc.pendingCheckpointSequenceNumber.SequenceNumber)
}

func (rc *RecordProcessorCheckpointer) Checkpoint(sequenceNumber *string) error {
	// nil checkpoints the terminal position of a closed shard
	if sequenceNumber == nil {
		rc.shard.SetCheckpoint(chk.ShardEnd)
	} else {
		rc.shard.SetCheckpoint(aws.ToString(sequenceNumber))
	}

	return rc.store.CheckpointSequence(rc.shard)
}

func (rc *RecordProcessorCheckpointer) PrepareCheckpoint(sequenceNumber *string) (kcl.IPreparedCheckpointer, error) {
	pending := &kcl.ExtendedSequenceNumber{SequenceNumber: sequenceNumber}
	if sequenceNumber == nil {
		pending = nil
	}
	return &PreparedCheckpointer{
		pendingCheckpointSequenceNumber: pending,
		checkpointer:                    rc,
	}, nil
}
