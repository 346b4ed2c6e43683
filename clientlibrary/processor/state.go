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

// ProcessorState is the lifecycle state of one shard's record processor.
// Transitions are monotonic: a processor never re-enters Created or
// Initialized, and LeaseLost, ShardEnded, and Shutdown are terminal.
type ProcessorState int

const (
	// StateCreated is the state before Initialize is called.
	StateCreated ProcessorState = iota

	// StateInitialized means the processor is bound to its shard but has not
	// received records yet.
	StateInitialized

	// StateProcessing means at least one batch has been delivered.
	StateProcessing

	// StateShardEnded means all records of the shard were delivered and the
	// shard is being retired.
	StateShardEnded

	// StateShutdown means the worker requested a graceful stop.
	StateShutdown

	// StateLeaseLost means another worker took the shard's lease.
	StateLeaseLost
)

var stateNames = map[ProcessorState]string{
	StateCreated:     "Created",
	StateInitialized: "Initialized",
	StateProcessing:  "Processing",
	StateShardEnded:  "ShardEnded",
	StateShutdown:    "Shutdown",
	StateLeaseLost:   "LeaseLost",
}

func (s ProcessorState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// validTransitions holds the forward edges of the lifecycle graph. LeaseLost
// and Shutdown are reachable from every non-terminal state and are therefore
// handled separately in canTransition.
var validTransitions = map[ProcessorState][]ProcessorState{
	StateCreated:     {StateInitialized},
	StateInitialized: {StateProcessing, StateShardEnded},
	StateProcessing:  {StateProcessing, StateShardEnded},
}

// canTransition reports whether moving from s to next respects the graph.
func (s ProcessorState) canTransition(next ProcessorState) bool {
	if s.terminal() {
		return false
	}
	if next == StateLeaseLost || next == StateShutdown {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// terminal reports whether no further lifecycle calls are accepted in s.
func (s ProcessorState) terminal() bool {
	return s == StateShardEnded || s == StateShutdown || s == StateLeaseLost
}
