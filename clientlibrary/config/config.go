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

// Package config holds the processor bridge configuration: identity,
// checkpoint commit policy, error escalation policy, and the ambient services
// (logger, metrics) shared by all shard processors of a worker.
package config

import (
	"log"
	"time"

	"github.com/streambridge/kinesis/clientlibrary/metrics"
	"github.com/streambridge/kinesis/clientlibrary/utils"
	"github.com/streambridge/kinesis/logger"
)

const (
	// DefaultAutoCommit checkpoints automatically after each successfully
	// processed batch.
	DefaultAutoCommit = true

	// DefaultRaiseOnError escalates processing errors to the worker's fatal
	// error slot instead of logging and continuing.
	DefaultRaiseOnError = true

	// DefaultCheckpointMaxRetries is the number of re-attempts after a failed
	// checkpoint commit.
	DefaultCheckpointMaxRetries = 5

	// DefaultCheckpointRetryInterval is the fixed wait between checkpoint
	// attempts.
	DefaultCheckpointRetryInterval = 5 * time.Second

	// DefaultShardEndWaitTimeout bounds the shard-end wait for in-flight
	// records. Zero means wait without a deadline.
	DefaultShardEndWaitTimeout = time.Duration(0)

	// DefaultBridgeWorkers is the size of the worker-shared execution pool.
	DefaultBridgeWorkers = 8

	// DefaultResultsQueueSize disables the results observation queue.
	DefaultResultsQueueSize = 0
)

// ProcessorConfiguration configures the record-processing bridge for one
// worker. Build it with NewProcessorConfig and the chainable With* methods.
type ProcessorConfiguration struct {
	// ApplicationName identifies the consumer application. Also used as the
	// default checkpoint table (key namespace).
	ApplicationName string

	// StreamName is the stream this worker consumes.
	StreamName string

	// WorkerID uniquely identifies this worker instance. Defaults to a
	// random UUID when empty.
	WorkerID string

	// TableName is the checkpoint store namespace. Defaults to ApplicationName.
	TableName string

	// AutoCommit checkpoints the highest-sequence record of each batch after
	// the processing callback succeeds.
	AutoCommit bool

	// RaiseOnError escalates callback, checkpoint, and shard-end errors to
	// the worker's fatal error slot, halting the worker. When false, errors
	// are logged and processing continues with the next batch; this accepts
	// potential data loss.
	RaiseOnError bool

	// CheckpointMaxRetries is the number of re-attempts after a failed
	// checkpoint commit before the failure propagates.
	CheckpointMaxRetries int

	// CheckpointRetryInterval is the fixed wait between checkpoint attempts.
	CheckpointRetryInterval time.Duration

	// ShardEndWaitTimeout bounds how long ShardEnded waits for in-flight
	// records to be acknowledged. Zero waits without a deadline.
	ShardEndWaitTimeout time.Duration

	// BridgeWorkers is the number of goroutines in the worker-shared
	// execution pool that runs callbacks and checkpoint I/O.
	BridgeWorkers int

	// ResultsQueueSize, when positive, enables a bounded queue into which
	// every committable record is offered best-effort for observation.
	// Records are dropped rather than blocking the pipeline.
	ResultsQueueSize int

	// Logger receives all library log output.
	Logger logger.Logger

	// MonitoringService records processing metrics. Nil disables metrics.
	MonitoringService metrics.MonitoringService
}

// NewProcessorConfig returns a ProcessorConfiguration with library defaults.
func NewProcessorConfig(applicationName, streamName, workerID string) *ProcessorConfiguration {
	checkIsValueNotEmpty("ApplicationName", applicationName)
	checkIsValueNotEmpty("StreamName", streamName)

	if empty(workerID) {
		workerID = utils.MustNewUUID()
	}

	return &ProcessorConfiguration{
		ApplicationName:         applicationName,
		StreamName:              streamName,
		WorkerID:                workerID,
		TableName:               applicationName,
		AutoCommit:              DefaultAutoCommit,
		RaiseOnError:            DefaultRaiseOnError,
		CheckpointMaxRetries:    DefaultCheckpointMaxRetries,
		CheckpointRetryInterval: DefaultCheckpointRetryInterval,
		ShardEndWaitTimeout:     DefaultShardEndWaitTimeout,
		BridgeWorkers:           DefaultBridgeWorkers,
		ResultsQueueSize:        DefaultResultsQueueSize,
		Logger:                  logger.GetDefaultLogger(),
	}
}

// WithTableName sets an alternative checkpoint store namespace.
// Defaults to ApplicationName.
func (c *ProcessorConfiguration) WithTableName(tableName string) *ProcessorConfiguration {
	checkIsValueNotEmpty("TableName", tableName)
	c.TableName = tableName
	return c
}

// WithAutoCommit controls automatic per-batch checkpointing. Default: true.
func (c *ProcessorConfiguration) WithAutoCommit(autoCommit bool) *ProcessorConfiguration {
	c.AutoCommit = autoCommit
	return c
}

// WithRaiseOnError controls whether processing errors halt the worker.
// Disabling it trades worker liveness for potential data loss. Default: true.
func (c *ProcessorConfiguration) WithRaiseOnError(raiseOnError bool) *ProcessorConfiguration {
	c.RaiseOnError = raiseOnError
	return c
}

// WithCheckpointMaxRetries sets the checkpoint re-attempt budget. Default: 5.
func (c *ProcessorConfiguration) WithCheckpointMaxRetries(maxRetries int) *ProcessorConfiguration {
	checkIsValueNotNegative("CheckpointMaxRetries", maxRetries)
	c.CheckpointMaxRetries = maxRetries
	return c
}

// WithCheckpointRetryInterval sets the fixed wait between checkpoint
// attempts. Default: 5s.
func (c *ProcessorConfiguration) WithCheckpointRetryInterval(interval time.Duration) *ProcessorConfiguration {
	checkIsDurationNotNegative("CheckpointRetryInterval", interval)
	c.CheckpointRetryInterval = interval
	return c
}

// WithShardEndWaitTimeout bounds the shard-end wait for in-flight records.
// Zero waits without a deadline. Default: 0.
func (c *ProcessorConfiguration) WithShardEndWaitTimeout(timeout time.Duration) *ProcessorConfiguration {
	checkIsDurationNotNegative("ShardEndWaitTimeout", timeout)
	c.ShardEndWaitTimeout = timeout
	return c
}

// WithBridgeWorkers sets the size of the worker-shared execution pool. Default: 8.
func (c *ProcessorConfiguration) WithBridgeWorkers(n int) *ProcessorConfiguration {
	checkIsValuePositive("BridgeWorkers", n)
	c.BridgeWorkers = n
	return c
}

// WithResultsQueueSize enables the bounded results observation queue. Default: 0 (disabled).
func (c *ProcessorConfiguration) WithResultsQueueSize(n int) *ProcessorConfiguration {
	checkIsValueNotNegative("ResultsQueueSize", n)
	c.ResultsQueueSize = n
	return c
}

// WithLogger sets a custom logger. Panics if nil.
func (c *ProcessorConfiguration) WithLogger(log logger.Logger) *ProcessorConfiguration {
	if log == nil {
		panic("Logger cannot be null")
	}
	c.Logger = log
	return c
}

// WithMonitoringService sets the monitoring service used to publish metrics.
func (c *ProcessorConfiguration) WithMonitoringService(mService metrics.MonitoringService) *ProcessorConfiguration {
	// Nil is handled downward (at processor creation), and the user might
	// want to be explicit about disabling metrics here.
	c.MonitoringService = mService
	return c
}

func empty(s string) bool {
	return len(s) == 0
}

func checkIsValueNotEmpty(key, value string) {
	if empty(value) {
		log.Panicf("Non-empty value expected for %v", key)
	}
}

func checkIsValuePositive(key string, value int) {
	if value <= 0 {
		log.Panicf("Positive value expected for %v, got: %d", key, value)
	}
}

func checkIsValueNotNegative(key string, value int) {
	if value < 0 {
		log.Panicf("Non-negative value expected for %v, got: %d", key, value)
	}
}

func checkIsDurationNotNegative(key string, value time.Duration) {
	if value < 0 {
		log.Panicf("Non-negative duration expected for %v, got: %s", key, value)
	}
}
