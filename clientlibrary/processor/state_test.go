package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessorStateString(t *testing.T) {
	assert.Equal(t, "Created", StateCreated.String())
	assert.Equal(t, "Initialized", StateInitialized.String())
	assert.Equal(t, "Processing", StateProcessing.String())
	assert.Equal(t, "ShardEnded", StateShardEnded.String())
	assert.Equal(t, "Shutdown", StateShutdown.String())
	assert.Equal(t, "LeaseLost", StateLeaseLost.String())
	assert.Equal(t, "Unknown", ProcessorState(99).String())
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    ProcessorState
		to      ProcessorState
		allowed bool
	}{
		{"created to initialized", StateCreated, StateInitialized, true},
		{"created to processing", StateCreated, StateProcessing, false},
		{"created to shard ended", StateCreated, StateShardEnded, false},
		{"created to lease lost", StateCreated, StateLeaseLost, true},
		{"created to shutdown", StateCreated, StateShutdown, true},

		{"initialized to processing", StateInitialized, StateProcessing, true},
		{"initialized to shard ended empty shard", StateInitialized, StateShardEnded, true},
		{"initialized to lease lost", StateInitialized, StateLeaseLost, true},
		{"initialized back to created", StateInitialized, StateCreated, false},
		{"initialized twice", StateInitialized, StateInitialized, false},

		{"processing is re-entrant", StateProcessing, StateProcessing, true},
		{"processing to shard ended", StateProcessing, StateShardEnded, true},
		{"processing to lease lost", StateProcessing, StateLeaseLost, true},
		{"processing to shutdown", StateProcessing, StateShutdown, true},
		{"processing back to initialized", StateProcessing, StateInitialized, false},

		{"shard ended is terminal", StateShardEnded, StateProcessing, false},
		{"shard ended to shutdown", StateShardEnded, StateShutdown, false},
		{"lease lost is terminal", StateLeaseLost, StateProcessing, false},
		{"lease lost to shutdown", StateLeaseLost, StateShutdown, false},
		{"shutdown is terminal", StateShutdown, StateProcessing, false},
		{"shutdown to lease lost", StateShutdown, StateLeaseLost, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.canTransition(tc.to))
		})
	}
}

func TestTerminalStates(t *testing.T) {
	assert.False(t, StateCreated.terminal())
	assert.False(t, StateInitialized.terminal())
	assert.False(t, StateProcessing.terminal())
	assert.True(t, StateShardEnded.terminal())
	assert.True(t, StateShutdown.terminal())
	assert.True(t, StateLeaseLost.terminal())
}
