package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	decisionsKey    = "guardrail:decisions"
	defaultKeep     = 500
	envRedisKeep    = "AUDIT_REDIS_KEEP"
	redisOpenPingTO = 2 * time.Second
)

// RedisStore keeps a capped ring of recent decision records for the
// decisions endpoint. Newest first.
type RedisStore struct {
	client *redis.Client
	keep   int64
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), redisOpenPingTO)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	keep := int64(defaultKeep)
	if raw := os.Getenv(envRedisKeep); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			keep = n
		}
	}
	return &RedisStore{client: client, keep: keep}, nil
}

func (s *RedisStore) Append(ctx context.Context, rec Record) error {
	rec.Reason = MaskPII(rec.Reason)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, decisionsKey, data)
	pipe.LTrim(ctx, decisionsKey, 0, s.keep-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to limit records, newest first.
func (s *RedisStore) Recent(ctx context.Context, limit int64) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	raw, err := s.client.LRange(ctx, decisionsKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(raw))
	for _, line := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
