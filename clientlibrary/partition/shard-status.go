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

// Package partition holds the per-shard bookkeeping shared between the
// checkpoint store and the checkpointer handles given to record processors.
package partition

import "sync"

// ShardStatus tracks the persisted checkpoint position of one shard.
// The mutex guards Checkpoint, which is read and written from the shard's
// processing goroutine and from store refresh paths.
type ShardStatus struct {
	// ID is the shard identifier.
	ID string

	// ParentShardID is the shard this one was split or merged from, if any.
	ParentShardID string

	// Checkpoint is the last persisted sequence number, or the SHARD_END
	// sentinel once the shard has been fully processed.
	Checkpoint string

	Mux *sync.RWMutex
}

// NewShardStatus returns a ShardStatus for the given shard ID.
func NewShardStatus(id string) *ShardStatus {
	return &ShardStatus{ID: id, Mux: &sync.RWMutex{}}
}

// SetCheckpoint records the in-memory checkpoint position.
func (s *ShardStatus) SetCheckpoint(sequenceNumber string) {
	s.Mux.Lock()
	defer s.Mux.Unlock()
	s.Checkpoint = sequenceNumber
}

// GetCheckpoint returns the in-memory checkpoint position.
func (s *ShardStatus) GetCheckpoint() string {
	s.Mux.RLock()
	defer s.Mux.RUnlock()
	return s.Checkpoint
}
