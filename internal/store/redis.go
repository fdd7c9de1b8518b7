package store

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"blog-sync/internal/model"
)

const redisKeyPrefix = "post:"

// RedisStore keeps each counter in a hash "post:<slug>" with fields view and
// last. HINCRBY makes the increment atomic on the server.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func OpenRedis(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewRedisStore(client), nil
}

func (s *RedisStore) IncrementOrCreate(ctx context.Context, slug string) (model.ViewRecord, error) {
	if slug == "" {
		return model.ViewRecord{}, ErrEmptySlug
	}

	now := s.now().UTC()
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, redisKeyPrefix+slug, "view", 1)
		pipe.HSet(ctx, redisKeyPrefix+slug, "last", now.Format(time.RFC3339))
		return nil
	})
	if err != nil {
		return model.ViewRecord{}, errors.Wrapf(err, "increment %q", slug)
	}
	return model.ViewRecord{Slug: slug, View: incr.Val(), LastUpdated: now}, nil
}

func (s *RedisStore) GetOrCreateMany(ctx context.Context, slugs []string) ([]model.ViewRecord, error) {
	unique, err := uniqueSlugs(slugs)
	if err != nil {
		return nil, err
	}
	if len(unique) == 0 {
		return []model.ViewRecord{}, nil
	}

	now := s.now().UTC().Format(time.RFC3339)
	reads := make([]*redis.SliceCmd, len(unique))
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, slug := range unique {
			key := redisKeyPrefix + slug
			pipe.HSetNX(ctx, key, "view", 0)
			pipe.HSetNX(ctx, key, "last", now)
			reads[i] = pipe.HMGet(ctx, key, "view", "last")
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "get or create views")
	}

	out := make([]model.ViewRecord, 0, len(unique))
	for i, slug := range unique {
		rec, err := redisRecord(slug, reads[i].Val())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

func redisRecord(slug string, vals []interface{}) (model.ViewRecord, error) {
	rec := model.ViewRecord{Slug: slug}
	if len(vals) != 2 {
		return rec, errors.Errorf("unexpected hash reply for %q", slug)
	}
	if v, ok := vals[0].(string); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return rec, errors.Wrapf(err, "parse view for %q", slug)
		}
		rec.View = n
	}
	if v, ok := vals[1].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			rec.LastUpdated = t
		}
	}
	return rec, nil
}
