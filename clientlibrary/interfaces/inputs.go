/*
 * Copyright (c) 2020 VMware, Inc.
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

// Package interfaces defines the lifecycle contract between the shard
// scheduling runtime and the per-shard record processors supplied by this
// library.
//
// The scheduling runtime owns lease assignment and shard discovery. For each
// shard it leases, it creates one processor via IShardRecordProcessorFactory
// and then invokes the processor's lifecycle methods synchronously on its own
// goroutine: Initialize -> ProcessRecords (repeated) -> exactly one of
// LeaseLost, ShardEnded, or ShutdownRequested. Calls for one shard are never
// concurrent; calls across shards are.
package interfaces

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
)

type (
	// StreamIdentity names a stream in multi-stream assignments. The account
	// and creation epoch disambiguate recreated streams with the same name.
	StreamIdentity struct {
		// StreamName is the Kinesis stream name.
		StreamName string

		// AccountID is the AWS account that owns the stream.
		AccountID string

		// StreamCreationEpoch is the stream's creation time in epoch seconds.
		StreamCreationEpoch int64
	}

	// InitializationInput is passed to IShardRecordProcessor.Initialize when
	// the processor is first bound to a shard.
	InitializationInput struct {
		// ShardID is the shard this processor is now responsible for.
		ShardID string

		// ExtendedSequenceNumber is the position processing resumes from:
		// the last checkpoint, or the configured initial position when no
		// checkpoint exists.
		ExtendedSequenceNumber ExtendedSequenceNumber
	}

	// ProcessRecordsInput carries one batch of records plus the capabilities
	// needed to track progress through it.
	ProcessRecordsInput struct {
		// CacheEntryTime is when the batch was read from the stream.
		CacheEntryTime *time.Time

		// CacheExitTime is when the batch was handed to the processor.
		CacheExitTime *time.Time

		// Records are the data records, de-aggregated if KPL-published.
		// Delivered in sequence-number order within the shard.
		Records []types.Record

		// Checkpointer commits progress for this shard.
		Checkpointer IRecordProcessorCheckpointer

		// MillisBehindLatest is how far this batch lagged the stream tip
		// when it was read, in milliseconds.
		MillisBehindLatest int64

		// IsAtShardEnd reports that this batch contains the final records
		// of the shard; no further batches will be delivered.
		IsAtShardEnd bool
	}

	// LeaseLostInput is passed to LeaseLost when the worker loses its lease
	// on the shard. It carries no checkpointer: checkpointing after lease
	// loss would race the shard's new owner.
	LeaseLostInput struct{}

	// ShardEndedInput is passed to ShardEnded when all records of the shard
	// have been delivered (the shard was split or merged).
	ShardEndedInput struct {
		// Checkpointer must be used to commit SHARD_END before returning,
		// otherwise the runtime cannot begin processing child shards.
		Checkpointer IRecordProcessorCheckpointer
	}

	// ShutdownRequestedInput is passed to ShutdownRequested when the worker
	// is shutting down gracefully while still holding the lease.
	ShutdownRequestedInput struct {
		// Checkpointer allows a final progress commit before shutdown.
		Checkpointer IRecordProcessorCheckpointer
	}
)
