package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// mockClient implements Client for unit testing.
type mockClient struct {
	data map[string]map[string]string // hash key -> field -> value
	sets map[string]map[string]bool   // set key -> members

	pingErr     error
	hsetErr     error
	delErr      error
	saddErr     error
	sremErr     error
	smembersErr error
	closeErr    error
}

func newMockClient() *mockClient {
	return &mockClient{
		data: make(map[string]map[string]string),
		sets: make(map[string]map[string]bool),
	}
}

func (m *mockClient) Ping(_ context.Context) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(context.Background())
	if m.pingErr != nil {
		cmd.SetErr(m.pingErr)
	} else {
		cmd.SetVal("PONG")
	}
	return cmd
}

func (m *mockClient) HGetAll(_ context.Context, key string) *goredis.MapStringStringCmd {
	cmd := goredis.NewMapStringStringCmd(context.Background())
	if hash, ok := m.data[key]; ok {
		result := make(map[string]string, len(hash))
		for k, v := range hash {
			result[k] = v
		}
		cmd.SetVal(result)
	} else {
		cmd.SetVal(map[string]string{})
	}
	return cmd
}

func (m *mockClient) HSet(_ context.Context, key string, values ...interface{}) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(context.Background())
	if m.hsetErr != nil {
		cmd.SetErr(m.hsetErr)
		return cmd
	}
	if m.data[key] == nil {
		m.data[key] = make(map[string]string)
	}
	for i := 0; i < len(values)-1; i += 2 {
		field, _ := values[i].(string)
		val, _ := values[i+1].(string)
		m.data[key][field] = val
	}
	cmd.SetVal(int64(len(values) / 2))
	return cmd
}

func (m *mockClient) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(context.Background())
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	var deleted int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			deleted++
		}
	}
	cmd.SetVal(deleted)
	return cmd
}

func (m *mockClient) SAdd(_ context.Context, key string, members ...interface{}) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(context.Background())
	if m.saddErr != nil {
		cmd.SetErr(m.saddErr)
		return cmd
	}
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]bool)
	}
	var added int64
	for _, member := range members {
		s, _ := member.(string)
		if !m.sets[key][s] {
			m.sets[key][s] = true
			added++
		}
	}
	cmd.SetVal(added)
	return cmd
}

func (m *mockClient) SRem(_ context.Context, key string, members ...interface{}) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(context.Background())
	if m.sremErr != nil {
		cmd.SetErr(m.sremErr)
		return cmd
	}
	var removed int64
	for _, member := range members {
		s, _ := member.(string)
		if m.sets[key][s] {
			delete(m.sets[key], s)
			removed++
		}
	}
	cmd.SetVal(removed)
	return cmd
}

func (m *mockClient) SMembers(_ context.Context, key string) *goredis.StringSliceCmd {
	cmd := goredis.NewStringSliceCmd(context.Background())
	if m.smembersErr != nil {
		cmd.SetErr(m.smembersErr)
		return cmd
	}
	members := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		members = append(members, member)
	}
	cmd.SetVal(members)
	return cmd
}

func (m *mockClient) Close() error {
	return m.closeErr
}
