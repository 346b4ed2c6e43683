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
	// IPreparedCheckpointer is a checkpoint that has been prepared at a
	// sequence number but not yet committed, decoupling preparation from
	// persistence.
	IPreparedCheckpointer interface {
		// GetPendingCheckpoint returns the prepared position, or nil when
		// nothing is pending.
		GetPendingCheckpoint() *ExtendedSequenceNumber

		// Checkpoint commits the prepared position, making it durable.
		Checkpoint() error
	}

	// IRecordProcessorCheckpointer commits per-shard progress. The scheduling
	// runtime supplies one instance per shard through the lifecycle inputs;
	// record processors never construct their own.
	IRecordProcessorCheckpointer interface {
		// Checkpoint durably records progress at the given sequence number.
		// After failover, delivery resumes past this position. Pass nil to
		// checkpoint at SHARD_END once a shard's final batch is processed.
		//
		// Returns an error when the backing store is unavailable, the lease
		// was lost, or the sequence number is out of range for the shard.
		Checkpoint(sequenceNumber *string) error

		// PrepareCheckpoint stages a checkpoint at the given sequence number
		// without committing it. The returned IPreparedCheckpointer commits
		// it later.
		PrepareCheckpoint(sequenceNumber *string) (IPreparedCheckpointer, error)
	}
)
