package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultLogger(t *testing.T) {
	log := GetDefaultLogger()
	require.NotNil(t, log)
	assert.NotPanics(t, func() {
		log.Infof("hello %s", "world")
	})
}

func TestNewLogrusLogger_UnknownLevelFallsBack(t *testing.T) {
	assert.NotNil(t, NewLogrusLogger("not-a-level"))
}

func TestLogrusLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	backend := logrus.New()
	backend.SetOutput(&buf)
	backend.SetLevel(logrus.DebugLevel)
	backend.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	log := NewLogrusLoggerWithLogger(backend).WithFields(Fields{
		"shard": "shardId-0",
	})
	log.Warnf("checkpoint attempt %d failed", 2)

	out := buf.String()
	assert.Contains(t, out, "shard=shardId-0")
	assert.Contains(t, out, "checkpoint attempt 2 failed")
	assert.Contains(t, out, "warning")
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	backend := logrus.New()
	backend.SetOutput(&buf)
	backend.SetLevel(logrus.InfoLevel)

	log := NewLogrusLoggerWithLogger(backend)
	log.Debugf("should be filtered")
	log.Infof("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}
