package library

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manash/stylestudio/pkg/models"
)

const (
	DefaultRedisKey    = "stylestudio:gallery"
	DefaultRedisMaxLen = 500
)

// RedisConfig selects the Redis list gallery records are mirrored to.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Key      string
	MaxLen   int64
}

// listClient is the part of the go-redis client the sink uses.
type listClient interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Close() error
}

// RedisSink mirrors gallery metadata to a capped Redis list, newest first.
// Image bytes stay in the sqlite library.
type RedisSink struct {
	client listClient
	key    string
	maxLen int64
}

// GalleryRecord is the JSON shape pushed to Redis.
type GalleryRecord struct {
	ID          string    `json:"id"`
	StyleName   string    `json:"style_name"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio"`
	MIMEType    string    `json:"mime_type"`
	Bytes       int       `json:"bytes"`
	Cost        float64   `json:"cost"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewRedisSink connects and pings the server.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return newRedisSink(rdb, cfg.Key, cfg.MaxLen), nil
}

func newRedisSink(client listClient, key string, maxLen int64) *RedisSink {
	if key == "" {
		key = DefaultRedisKey
	}
	if maxLen <= 0 {
		maxLen = DefaultRedisMaxLen
	}
	return &RedisSink{client: client, key: key, maxLen: maxLen}
}

func (s *RedisSink) Record(ctx context.Context, entry models.GalleryEntry) error {
	payload, err := json.Marshal(GalleryRecord{
		ID:          entry.ID,
		StyleName:   entry.StyleName,
		Prompt:      entry.Prompt,
		AspectRatio: string(entry.AspectRatio.Normalize()),
		MIMEType:    entry.Image.MIMEType,
		Bytes:       len(entry.Image.Data),
		Cost:        entry.Cost,
		Timestamp:   entry.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode gallery record: %w", err)
	}

	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push gallery record: %w", err)
	}
	if err := s.client.LTrim(ctx, s.key, 0, s.maxLen-1).Err(); err != nil {
		return fmt.Errorf("failed to trim gallery list: %w", err)
	}
	return nil
}

// Recent returns up to n mirrored records, newest first.
func (s *RedisSink) Recent(ctx context.Context, n int64) ([]GalleryRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, s.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery list: %w", err)
	}

	records := make([]GalleryRecord, 0, len(raw))
	for _, r := range raw {
		var rec GalleryRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode gallery record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
