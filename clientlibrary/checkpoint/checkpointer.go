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

// Package checkpoint persists per-shard progress markers and defines the
// bounded retry policy every checkpoint commit goes through.
//
// The Checkpointer interface abstracts the durable store (Redis is provided;
// see the redis subpackage). Lease assignment and rebalancing are owned by
// the scheduling runtime, not by this package: the store only tracks how far
// each shard has been processed.
package checkpoint

import (
	"errors"

	par "github.com/streambridge/kinesis/clientlibrary/partition"
)

const (
	// SequenceNumberKey is the store field name for the last checkpointed
	// sequence number.
	SequenceNumberKey = "Checkpoint"

	// ParentShardIDKey is the store field name for the parent shard ID
	// (present after a split or merge).
	ParentShardIDKey = "ParentShardId"

	// ShardEnd is the sentinel checkpoint value recording that a shard has
	// been completely processed and all its records delivered.
	ShardEnd = "SHARD_END"
)

// ErrSequenceIDNotFound is returned by FetchCheckpoint when the store has no
// checkpoint for the shard.
var ErrSequenceIDNotFound = errors.New("no checkpoint found for shard")

// Checkpointer is the durable store for shard progress markers.
// Implementations must tolerate concurrent calls for different shards; calls
// for the same shard are serialized by the owning processor.
type Checkpointer interface {
	// Init establishes the connection to the backing store.
	Init() error

	// CheckpointSequence persists the shard's current checkpoint position.
	CheckpointSequence(shard *par.ShardStatus) error

	// FetchCheckpoint loads the stored checkpoint into the shard status.
	// Returns ErrSequenceIDNotFound when no checkpoint exists.
	FetchCheckpoint(shard *par.ShardStatus) error

	// RemoveCheckpoint deletes all stored state for a shard that no longer
	// exists in the stream.
	RemoveCheckpoint(shardID string) error
}
