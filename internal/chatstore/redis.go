// Package chatstore archives session chat to Redis.
package chatstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sathwikbalu/Zenith-Study/internal/signaling"
)

// RedisArchive appends every message to a per-session list and publishes it
// on a channel for other services.
type RedisArchive struct {
	rdb     *redis.Client
	ttl     time.Duration
	channel string
}

func NewRedisArchive(rdb *redis.Client, ttl time.Duration, channel string) *RedisArchive {
	return &RedisArchive{rdb: rdb, ttl: ttl, channel: channel}
}

func historyKey(sessionID string) string {
	return "chat:" + sessionID
}

func (a *RedisArchive) Archive(ctx context.Context, msg signaling.ChatBroadcast) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode chat message: %w", err)
	}
	key := historyKey(msg.SessionID)

	_, err = a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		if a.ttl > 0 {
			pipe.Expire(ctx, key, a.ttl)
		}
		if a.channel != "" {
			pipe.Publish(ctx, a.channel, payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive chat message %s: %w", msg.ID, err)
	}
	return nil
}

// History returns up to limit of the most recent messages of a session, oldest first.
func (a *RedisArchive) History(ctx context.Context, sessionID string, limit int64) ([]signaling.ChatBroadcast, error) {
	raw, err := a.rdb.LRange(ctx, historyKey(sessionID), -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	out := make([]signaling.ChatBroadcast, 0, len(raw))
	for _, item := range raw {
		var msg signaling.ChatBroadcast
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("decode chat history: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}
