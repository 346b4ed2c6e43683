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

package interfaces

type (
	// IShardRecordProcessor receives the lifecycle callbacks for one shard.
	//
	// The scheduling runtime invokes these methods synchronously and treats
	// their return as the signal that the phase completed: implementations
	// must not return while work for the call is still in flight. Each method
	// is invoked on the runtime's goroutine for the shard; the runtime never
	// issues concurrent calls for the same shard.
	//
	// This mirrors the Amazon KCL v2 ShardRecordProcessor contract.
	IShardRecordProcessor interface {
		// Initialize is called exactly once, before any records are
		// delivered, with the shard identity and starting position.
		Initialize(input *InitializationInput)

		// ProcessRecords delivers a batch of records. Upon failover, the
		// replacement processor receives records with sequence numbers
		// greater than the last checkpointed position.
		ProcessRecords(input *ProcessRecordsInput)

		// LeaseLost is called when another worker took the shard's lease.
		// No further calls are made; do not checkpoint.
		LeaseLost(input *LeaseLostInput)

		// ShardEnded is called after the final records of the shard were
		// delivered. The processor MUST checkpoint at SHARD_END before
		// returning so child shards can be processed.
		ShardEnded(input *ShardEndedInput)

		// ShutdownRequested is called when the worker is shutting down
		// gracefully while still holding the lease.
		ShutdownRequested(input *ShutdownRequestedInput)
	}

	// IShardRecordProcessorFactory creates one IShardRecordProcessor per
	// shard assignment. The runtime assigns shards independently, so
	// implementations must be safe for concurrent calls.
	IShardRecordProcessorFactory interface {
		// CreateProcessor returns a fresh processor for a shard of the
		// consumer's single configured stream.
		CreateProcessor() IShardRecordProcessor

		// CreateProcessorForStream returns a fresh processor for a shard of
		// the identified stream (multi-stream assignment path).
		CreateProcessorForStream(identity StreamIdentity) IShardRecordProcessor
	}
)
