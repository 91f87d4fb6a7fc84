package mailqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abrezinsky/munreg/internal/models"
)

// DefaultRedisKey is the list a mail worker pops from
const DefaultRedisKey = "munreg:mail"

// RedisClient is the subset of *redis.Client the queue needs
type RedisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisQueue appends JSON-encoded messages to a Redis list
type RedisQueue struct {
	client RedisClient
	key    string
	now    func() time.Time
}

// NewRedisQueue creates a queue pushing onto key (DefaultRedisKey if empty)
func NewRedisQueue(client RedisClient, key string) *RedisQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{client: client, key: key, now: func() time.Time { return time.Now().UTC() }}
}

// NewRedisClient connects to addr and checks the connection
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Enqueue pushes msg to the tail of the list
func (q *RedisQueue) Enqueue(ctx context.Context, msg models.MailMessage) (models.MailMessage, error) {
	if err := validate(msg); err != nil {
		return models.MailMessage{}, err
	}
	msg = stamp(msg, q.now())
	payload, err := json.Marshal(msg)
	if err != nil {
		return models.MailMessage{}, err
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return models.MailMessage{}, fmt.Errorf("push mail %s: %w", msg.ID, err)
	}
	return msg, nil
}

// List returns up to limit of the most recently pushed messages, newest first
func (q *RedisQueue) List(ctx context.Context, limit int) ([]models.MailMessage, error) {
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	raw, err := q.client.LRange(ctx, q.key, start, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]models.MailMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var m models.MailMessage
		if err := json.Unmarshal([]byte(raw[i]), &m); err != nil {
			return nil, fmt.Errorf("decode queued mail: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

var (
	_ Queue       = (*RedisQueue)(nil)
	_ Lister      = (*RedisQueue)(nil)
	_ RedisClient = (*redis.Client)(nil)
)
