package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tech-monarch/ArtMintNFT/pkg/types"
)

// DefaultMirrorKey is the Redis list records are pushed to
const DefaultMirrorKey = "artmint:ledger"

// RedisMirror pushes each appended record onto a Redis list
type RedisMirror struct {
	client *redis.Client
	key    string
}

// NewRedisMirror connects to the Redis server at url (redis://host:port/db)
func NewRedisMirror(url, key string) (*RedisMirror, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if key == "" {
		key = DefaultMirrorKey
	}
	return &RedisMirror{
		client: redis.NewClient(opts),
		key:    key,
	}, nil
}

// Publish appends the record JSON to the list
func (m *RedisMirror) Publish(ctx context.Context, record *types.LocalMintRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := m.client.RPush(ctx, m.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push record to redis: %w", err)
	}
	return nil
}

// Records reads the mirrored records back in push order
func (m *RedisMirror) Records(ctx context.Context) ([]types.LocalMintRecord, error) {
	values, err := m.client.LRange(ctx, m.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read redis mirror: %w", err)
	}

	records := make([]types.LocalMintRecord, 0, len(values))
	for _, v := range values {
		var record types.LocalMintRecord
		if err := json.Unmarshal([]byte(v), &record); err != nil {
			return nil, fmt.Errorf("failed to parse mirrored record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Ping checks connectivity
func (m *RedisMirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (m *RedisMirror) Close() error {
	return m.client.Close()
}
