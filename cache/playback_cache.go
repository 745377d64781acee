package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"DriveFM/core/player"

	"github.com/go-redis/redis/v8"
)

const (
	playbackKey = "player:state" // String: 播放状态快照 JSON
	playbackTTL = 24 * time.Hour
)

// PlaybackCache mirrors the playback selection state into Redis so a page
// reload can resume where the session left off. Purely advisory: the
// selector in memory stays authoritative.
type PlaybackCache struct {
	client *redis.Client
}

// NewPlaybackCache 创建播放状态缓存
func NewPlaybackCache(client *redis.Client) *PlaybackCache {
	return &PlaybackCache{client: client}
}

// Save 写入播放状态快照
func (c *PlaybackCache) Save(ctx context.Context, snap player.Snapshot) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal playback snapshot: %w", err)
	}

	if err := c.client.Set(ctx, playbackKey, data, playbackTTL).Err(); err != nil {
		return fmt.Errorf("failed to save playback snapshot: %w", err)
	}
	return nil
}

// Load 读取播放状态快照，不存在时返回 nil
func (c *PlaybackCache) Load(ctx context.Context) (*player.Snapshot, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, playbackKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load playback snapshot: %w", err)
	}

	var snap player.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playback snapshot: %w", err)
	}
	return &snap, nil
}

// Clear 清除播放状态快照
func (c *PlaybackCache) Clear(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := c.client.Del(ctx, playbackKey).Err(); err != nil {
		return fmt.Errorf("failed to clear playback snapshot: %w", err)
	}
	return nil
}
