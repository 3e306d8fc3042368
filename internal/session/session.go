// Package session keeps per-user chat history in Redis for channels, like
// the XMPP gateway, whose clients do not carry their own history.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sampurna/itsupport/internal/conversation"
)

// MaxMessages bounds the stored history per user. Only the last
// conversation.MaxTurns are sent with a question.
const MaxMessages = 50

// Store manages chat history in Redis lists.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStore creates a history store whose sessions expire after ttl of
// inactivity.
func NewStore(client redis.Cmdable, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func historyKey(user string) string {
	return "session:" + user
}

// Recent returns the last limit messages for user, oldest first.
func (s *Store) Recent(ctx context.Context, user string, limit int) ([]conversation.Message, error) {
	key := historyKey(user)

	vals, err := s.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	msgs := make([]conversation.Message, 0, len(vals))
	for _, v := range vals {
		var m conversation.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			slog.Warn("skipping malformed history entry", "key", key, "error", err)
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Append adds messages in order, trims the list to MaxMessages and refreshes
// the TTL.
func (s *Store) Append(ctx context.Context, user string, msgs ...conversation.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	key := historyKey(user)

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling message: %w", err)
		}
		values = append(values, string(data))
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -MaxMessages, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Clear deletes the user's history.
func (s *Store) Clear(ctx context.Context, user string) error {
	return s.client.Del(ctx, historyKey(user)).Err()
}
