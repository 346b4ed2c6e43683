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

import "sync"

// FatalErrorSlot is a write-once error cell shared by every shard processor
// of a worker. The first fatal error wins; later writes are no-ops. The
// consumer driver observes Done to abort the whole worker.
type FatalErrorSlot struct {
	mu   sync.Mutex
	err  error
	done chan struct{}
}

// NewFatalErrorSlot returns an empty slot.
func NewFatalErrorSlot() *FatalErrorSlot {
	return &FatalErrorSlot{done: make(chan struct{})}
}

// TrySet stores err if the slot is still empty and reports whether this call
// won the write. A nil err never completes the slot.
func (s *FatalErrorSlot) TrySet(err error) bool {
	if err == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false
	}
	s.err = err
	close(s.done)
	return true
}

// Done is closed once the slot has been written.
func (s *FatalErrorSlot) Done() <-chan struct{} {
	return s.done
}

// Err returns the stored error, or nil while the slot is empty.
func (s *FatalErrorSlot) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
