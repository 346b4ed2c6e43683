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

// Package redis implements the checkpoint.Checkpointer store on Redis.
//
// Each shard's progress lives in a hash keyed by
// "<prefix>:<table>:shard:<shardID>"; the set "<prefix>:<table>:shards"
// registers every shard that has ever checkpointed, so operators can
// enumerate progress without scanning keys.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	chk "github.com/streambridge/kinesis/clientlibrary/checkpoint"
	"github.com/streambridge/kinesis/clientlibrary/config"
	par "github.com/streambridge/kinesis/clientlibrary/partition"
	"github.com/streambridge/kinesis/logger"
)

const defaultKeyPrefix = "kcl"

// Client is the minimal interface over *redis.Client used by the store.
// *redis.Client satisfies it naturally.
type Client interface {
	Ping(ctx context.Context) *redis.StatusCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Close() error
}

// Config holds connection settings for the Redis backend.
type Config struct {
	Address   string // host:port, or a redis:// / rediss:// URL (required)
	Password  string // auth password (optional)
	DB        int    // database number 0-15 (default: 0)
	KeyPrefix string // key prefix (default: "kcl")
	TLS       bool   // enable TLS (default: false)
}

// Checkpoint implements checkpoint.Checkpointer backed by Redis.
type Checkpoint struct {
	log      logger.Logger
	client   Client
	redisCfg Config

	tableName string
	keyPrefix string
}

// NewCheckpoint creates a Redis-backed checkpoint store. The processor
// configuration supplies the table name (key namespace) and logger.
func NewCheckpoint(cfg *config.ProcessorConfiguration, redisCfg Config) *Checkpoint {
	prefix := redisCfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &Checkpoint{
		log:       cfg.Logger,
		redisCfg:  redisCfg,
		tableName: cfg.TableName,
		keyPrefix: prefix,
	}
}

// WithClient injects a pre-configured Redis client (useful for testing).
func (c *Checkpoint) WithClient(client Client) *Checkpoint {
	c.client = client
	return c
}

// shardKey returns the Redis hash key for a shard.
func (c *Checkpoint) shardKey(shardID string) string {
	return fmt.Sprintf("%s:%s:shard:%s", c.keyPrefix, c.tableName, shardID)
}

// registryKey returns the Redis set key tracking all shard IDs.
func (c *Checkpoint) registryKey() string {
	return fmt.Sprintf("%s:%s:shards", c.keyPrefix, c.tableName)
}

// Init initialises the Redis connection and verifies connectivity.
func (c *Checkpoint) Init() error {
	c.log.Infof("Creating Redis session for table %s", c.tableName)

	if c.client == nil {
		client, err := createClient(c.redisCfg)
		if err != nil {
			return fmt.Errorf("redis client creation failed: %w", err)
		}
		c.client = client
	}

	if err := c.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}

// CheckpointSequence writes the shard's checkpoint position and registers the
// shard in the registry set.
func (c *Checkpoint) CheckpointSequence(shard *par.ShardStatus) error {
	fields := []interface{}{
		chk.SequenceNumberKey, shard.GetCheckpoint(),
	}
	if shard.ParentShardID != "" {
		fields = append(fields, chk.ParentShardIDKey, shard.ParentShardID)
	}

	if err := c.client.HSet(context.Background(), c.shardKey(shard.ID), fields...).Err(); err != nil {
		return fmt.Errorf("checkpoint sequence failed: %w", err)
	}

	if err := c.client.SAdd(context.Background(), c.registryKey(), shard.ID).Err(); err != nil {
		return fmt.Errorf("shard registry add failed: %w", err)
	}

	return nil
}

// FetchCheckpoint retrieves the checkpoint for the given shard.
func (c *Checkpoint) FetchCheckpoint(shard *par.ShardStatus) error {
	data, err := c.client.HGetAll(context.Background(), c.shardKey(shard.ID)).Result()
	if err != nil {
		return fmt.Errorf("fetch checkpoint failed: %w", err)
	}

	sequenceID, ok := data[chk.SequenceNumberKey]
	if !ok || sequenceID == "" {
		return chk.ErrSequenceIDNotFound
	}

	c.log.Debugf("Retrieved checkpoint %s for shard %s", sequenceID, shard.ID)
	shard.SetCheckpoint(sequenceID)

	if parent, ok := data[chk.ParentShardIDKey]; ok && parent != "" {
		shard.ParentShardID = parent
	}

	return nil
}

// RemoveCheckpoint deletes all stored state for a shard that no longer exists.
func (c *Checkpoint) RemoveCheckpoint(shardID string) error {
	if err := c.client.Del(context.Background(), c.shardKey(shardID)).Err(); err != nil {
		return fmt.Errorf("checkpoint delete failed: %w", err)
	}

	if err := c.client.SRem(context.Background(), c.registryKey(), shardID).Err(); err != nil {
		return fmt.Errorf("shard registry remove failed: %w", err)
	}

	return nil
}

// ListShards returns every shard ID registered in the store.
func (c *Checkpoint) ListShards() ([]string, error) {
	ids, err := c.client.SMembers(context.Background(), c.registryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("shard registry list failed: %w", err)
	}
	return ids, nil
}

// createClient builds a *redis.Client from Config.
// If Address looks like a URL (redis:// or rediss://), it is parsed
// automatically. The rediss:// scheme enables TLS. The explicit TLS field
// acts as an override on top of a plain host:port address.
func createClient(cfg Config) (*redis.Client, error) {
	if strings.HasPrefix(cfg.Address, "redis://") || strings.HasPrefix(cfg.Address, "rediss://") {
		opts, err := redis.ParseURL(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL %q: %w", cfg.Address, err)
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		if cfg.DB != 0 {
			opts.DB = cfg.DB
		}
		if cfg.TLS && opts.TLSConfig == nil {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		return redis.NewClient(opts), nil
	}

	opts := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts), nil
}
