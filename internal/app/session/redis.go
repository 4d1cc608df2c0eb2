package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/R3E-Network/canteen_pos/internal/errors"
)

const redisKeyPrefix = "canteen:session:"

// RedisStore keeps sessions as JSON values whose TTL matches ExpiresAt.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisStore(client), nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) Save(ctx context.Context, sess Session) error {
	return r.write(ctx, r.client, sess)
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	return r.read(ctx, r.client, id)
}

func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (Session, error) {
	key := redisKeyPrefix + id
	var updated Session
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		sess, err := r.read(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(&sess); err != nil {
			return err
		}
		payload, ttl, err := r.encode(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = sess
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return Session{}, apperrors.New(apperrors.CodeStorageUnavailable, "session modified concurrently", err)
	}
	if err != nil {
		if apperrors.GetServiceError(err) != nil {
			return Session{}, err
		}
		return Session{}, apperrors.StorageUnavailable(err)
	}
	return updated, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return apperrors.StorageUnavailable(err)
	}
	return nil
}

func (r *RedisStore) encode(sess Session) ([]byte, time.Duration, error) {
	ttl := sess.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil, 0, apperrors.Unauthorized("session expired")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, 0, err
	}
	return payload, ttl, nil
}

func (r *RedisStore) write(ctx context.Context, c redis.Cmdable, sess Session) error {
	payload, ttl, err := r.encode(sess)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, redisKeyPrefix+sess.ID, payload, ttl).Err(); err != nil {
		return apperrors.StorageUnavailable(err)
	}
	return nil
}

func (r *RedisStore) read(ctx context.Context, c redis.Cmdable, id string) (Session, error) {
	raw, err := c.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, apperrors.Unauthorized("session not found")
	}
	if err != nil {
		return Session{}, apperrors.StorageUnavailable(err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, apperrors.Internal("decode session", err)
	}
	if sess.Expired(r.now()) {
		return Session{}, apperrors.Unauthorized("session expired")
	}
	return sess, nil
}
