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

// Package worker wires the record-processor factory into the external
// scheduling runtime and supervises the resulting consumer: start
// confirmation, fatal-error observation, and orderly shutdown.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/streambridge/kinesis/clientlibrary/bridge"
	"github.com/streambridge/kinesis/clientlibrary/config"
	kcl "github.com/streambridge/kinesis/clientlibrary/interfaces"
	"github.com/streambridge/kinesis/clientlibrary/processor"
	"github.com/streambridge/kinesis/logger"
)

// ErrConsumerAlreadyStarted is returned by Start when called twice.
var ErrConsumerAlreadyStarted = errors.New("worker: consumer already started")

// Scheduler is the external scheduling runtime that owns lease assignment
// and shard discovery and invokes the lifecycle callbacks of the processors
// created by the registered factory.
type Scheduler interface {
	// Run drives shard consumption until ctx is cancelled, then waits for
	// in-flight shard processors to reach a terminal state before returning.
	Run(ctx context.Context) error

	// Initialized is closed after the scheduler's first successful
	// initialization, i.e. once the consumer is live.
	Initialized() <-chan struct{}
}

// SchedulerFactory builds the runtime's scheduler around the record
// processor factory this library supplies.
type SchedulerFactory func(factory kcl.IShardRecordProcessorFactory, cfg *config.ProcessorConfiguration) (Scheduler, error)

// Consumer drives one worker's stream consumption. Build with NewConsumer,
// then Start; observe Started for liveness and Done/Err for completion.
type Consumer struct {
	cfg              *config.ProcessorConfiguration
	log              logger.Logger
	callback         processor.RecordsCallback
	schedulerFactory SchedulerFactory

	bridge  *bridge.Bridge
	fatal   *processor.FatalErrorSlot
	results chan processor.CommittableRecord

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	started   chan struct{}
	done      chan struct{}

	errMu sync.Mutex
	err   error
}

// NewConsumer builds a consumer for the given configuration, user callback,
// and scheduling runtime.
func NewConsumer(cfg *config.ProcessorConfiguration, callback processor.RecordsCallback, schedulerFactory SchedulerFactory) *Consumer {
	return &Consumer{
		cfg:              cfg,
		log:              cfg.Logger,
		callback:         callback,
		schedulerFactory: schedulerFactory,
		fatal:            processor.NewFatalErrorSlot(),
		started:          make(chan struct{}),
		done:             make(chan struct{}),
	}
}

// Start builds the scheduler around a fresh processor factory and launches
// it on a background goroutine. It returns once the scheduler is launched;
// use Started to wait for the first successful initialization.
func (c *Consumer) Start() error {
	var err error
	started := false
	c.startOnce.Do(func() {
		started = true
		err = c.start()
	})
	if !started {
		return ErrConsumerAlreadyStarted
	}
	return err
}

func (c *Consumer) start() error {
	if c.cfg.MonitoringService != nil {
		if err := c.cfg.MonitoringService.Init(c.cfg.ApplicationName, c.cfg.StreamName, c.cfg.WorkerID); err != nil {
			return fmt.Errorf("init monitoring: %w", err)
		}
		if err := c.cfg.MonitoringService.Start(); err != nil {
			return fmt.Errorf("start monitoring: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.ctx, c.cancel = ctx, cancel

	c.bridge = bridge.NewBridge(c.cfg.BridgeWorkers)
	if c.cfg.ResultsQueueSize > 0 {
		c.results = make(chan processor.CommittableRecord, c.cfg.ResultsQueueSize)
	}

	factory := processor.NewRecordProcessorFactory(c.cfg, c.callback, c.bridge, c.fatal).
		WithContext(ctx).
		WithResultsQueue(c.results)

	sched, err := c.schedulerFactory(factory, c.cfg)
	if err != nil {
		cancel()
		c.bridge.Close()
		return fmt.Errorf("build scheduler: %w", err)
	}

	// Relay the scheduler's first-init notification to the started signal.
	go func() {
		select {
		case <-sched.Initialized():
			c.log.Infof("Consumer %s started for stream %s", c.cfg.WorkerID, c.cfg.StreamName)
			close(c.started)
		case <-c.done:
		}
	}()

	// A fatal error from any shard aborts the whole worker.
	go func() {
		select {
		case <-c.fatal.Done():
			c.log.Errorf("Fatal shard error, stopping consumer %s: %v", c.cfg.WorkerID, c.fatal.Err())
			cancel()
		case <-c.done:
		}
	}()

	go c.run(sched)
	return nil
}

func (c *Consumer) run(sched Scheduler) {
	runErr := sched.Run(c.ctx)

	// The fatal error outranks the scheduler's own return value: it is the
	// root cause of the stop when present.
	if ferr := c.fatal.Err(); ferr != nil {
		c.setErr(ferr)
	} else if runErr != nil && !errors.Is(runErr, context.Canceled) {
		c.setErr(runErr)
	}

	c.bridge.Close()
	if c.cfg.MonitoringService != nil {
		c.cfg.MonitoringService.Shutdown()
	}
	close(c.done)
}

func (c *Consumer) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// Started is closed once the scheduler reports its first successful
// initialization.
func (c *Consumer) Started() <-chan struct{} {
	return c.started
}

// Done is closed once the scheduler has fully stopped and all shard
// processors reached a terminal state.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the consumer, or nil after a clean
// shutdown. Valid once Done is closed.
func (c *Consumer) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// FatalError exposes the worker-shared fatal error slot to supervisory and
// test code.
func (c *Consumer) FatalError() *processor.FatalErrorSlot {
	return c.fatal
}

// Results returns the bounded observation queue, or nil when
// ResultsQueueSize is zero. Records are offered best-effort: a full queue
// drops records rather than slowing the pipeline.
func (c *Consumer) Results() <-chan processor.CommittableRecord {
	return c.results
}

// Shutdown requests an orderly stop and waits for the scheduler to finish,
// bounded by ctx. A consumer that never started has nothing to stop.
func (c *Consumer) Shutdown(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker: shutdown wait: %w", ctx.Err())
	}
}
