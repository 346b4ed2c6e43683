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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix of environment variables that override file
// settings. A double underscore separates path segments so single
// underscores inside key names survive the mapping, e.g.
// KCL__CHECKPOINT__MAX_RETRIES overrides checkpoint.max_retries.
const envPrefix = "KCL__"

// fileSettings is the YAML shape accepted by LoadFromFile.
type fileSettings struct {
	Application struct {
		Name      string `koanf:"name"`
		Stream    string `koanf:"stream"`
		WorkerID  string `koanf:"worker_id"`
		TableName string `koanf:"table_name"`
	} `koanf:"application"`

	Processing struct {
		AutoCommit       *bool `koanf:"auto_commit"`
		RaiseOnError     *bool `koanf:"raise_on_error"`
		BridgeWorkers    int   `koanf:"bridge_workers"`
		ResultsQueueSize int   `koanf:"results_queue_size"`
	} `koanf:"processing"`

	Checkpoint struct {
		MaxRetries    *int          `koanf:"max_retries"`
		RetryInterval time.Duration `koanf:"retry_interval"`
	} `koanf:"checkpoint"`

	ShardEnd struct {
		WaitTimeout time.Duration `koanf:"wait_timeout"`
	} `koanf:"shard_end"`
}

// LoadFromFile builds a ProcessorConfiguration from a YAML file, with
// KCL__-prefixed environment variables taking precedence over file values
// (dots in config paths map to double underscores in variable names).
func LoadFromFile(path string) (*ProcessorConfiguration, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load config environment: %w", err)
	}

	var fs fileSettings
	if err := k.Unmarshal("", &fs); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if fs.Application.Name == "" || fs.Application.Stream == "" {
		return nil, fmt.Errorf("config %s: application.name and application.stream are required", path)
	}

	cfg := NewProcessorConfig(fs.Application.Name, fs.Application.Stream, fs.Application.WorkerID)
	if fs.Application.TableName != "" {
		cfg.WithTableName(fs.Application.TableName)
	}
	if fs.Processing.AutoCommit != nil {
		cfg.WithAutoCommit(*fs.Processing.AutoCommit)
	}
	if fs.Processing.RaiseOnError != nil {
		cfg.WithRaiseOnError(*fs.Processing.RaiseOnError)
	}
	if fs.Processing.BridgeWorkers > 0 {
		cfg.WithBridgeWorkers(fs.Processing.BridgeWorkers)
	}
	if fs.Processing.ResultsQueueSize > 0 {
		cfg.WithResultsQueueSize(fs.Processing.ResultsQueueSize)
	}
	if fs.Checkpoint.MaxRetries != nil {
		cfg.WithCheckpointMaxRetries(*fs.Checkpoint.MaxRetries)
	}
	if fs.Checkpoint.RetryInterval > 0 {
		cfg.WithCheckpointRetryInterval(fs.Checkpoint.RetryInterval)
	}
	if fs.ShardEnd.WaitTimeout > 0 {
		cfg.WithShardEndWaitTimeout(fs.ShardEnd.WaitTimeout)
	}

	return cfg, nil
}
