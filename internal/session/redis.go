package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arrest-log/internal/users"
	"arrest-log/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON snapshot per session under
// <ns>:session:<id> with a TTL, plus a <ns>:user_sessions:<userID> set used
// to drop every session of a user at once.
type RedisStore struct {
	rdb       redis.UniversalClient
	namespace string
	clock     func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: namespace, clock: time.Now}
}

func (r *RedisStore) sessionKey(id string) string {
	return utils.Key(r.namespace, "session", id)
}

func (r *RedisStore) userKey(userID string) string {
	return utils.Key(r.namespace, "user_sessions", userID)
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(r.clock())
	if ttl <= 0 {
		return fmt.Errorf("session: already expired")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, r.sessionKey(s.ID), raw, ttl)
	pipe.SAdd(ctx, r.userKey(s.User.ID), s.ID)
	// Sessions share one TTL, so the index only needs to outlive the newest.
	pipe.Expire(ctx, r.userKey(s.User.ID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.rdb.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("session: decode: %w", err)
	}
	return s, nil
}

func (r *RedisStore) ReplaceUser(ctx context.Context, id string, u users.User) error {
	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	s.User = u
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// XX: only overwrite a session that still exists; KEEPTTL preserves expiry.
	ok, err := r.rdb.SetArgs(ctx, r.sessionKey(id), raw, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}
	if ok != "OK" {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	pipe.SRem(ctx, r.userKey(s.User.ID), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) DeleteByUser(ctx context.Context, userID string) error {
	ids, err := r.rdb.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, r.userKey(userID))
	return r.rdb.Del(ctx, keys...).Err()
}
