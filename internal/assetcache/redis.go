package assetcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "fintrack:assets"

var _ Storage = (*RedisStorage)(nil)

// RedisStorage keeps one hash per generation ("<prefix>:gen:<tag>", field =
// request key), the set of known generations and the active tag, so several
// proxy instances share one cache.
type RedisStorage struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStorage(rdb redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{rdb: rdb, prefix: prefix}
}

// DialRedis parses a redis:// URL and verifies the connection.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

func (s *RedisStorage) genKey(gen string) string { return s.prefix + ":gen:" + gen }
func (s *RedisStorage) setKey() string           { return s.prefix + ":generations" }
func (s *RedisStorage) activeKey() string        { return s.prefix + ":active" }

func (s *RedisStorage) Put(ctx context.Context, gen, key string, r Response) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.genKey(gen), key, b)
		p.SAdd(ctx, s.setKey(), gen)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store %s in %s: %w", key, gen, err)
	}
	return nil
}

func (s *RedisStorage) Get(ctx context.Context, gen, key string) (Response, bool, error) {
	b, err := s.rdb.HGet(ctx, s.genKey(gen), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, fmt.Errorf("lookup %s in %s: %w", key, gen, err)
	}
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return Response{}, false, fmt.Errorf("decode %s in %s: %w", key, gen, err)
	}
	return r, true, nil
}

func (s *RedisStorage) Keys(ctx context.Context, gen string) ([]string, error) {
	keys, err := s.rdb.HKeys(ctx, s.genKey(gen)).Result()
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", gen, err)
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *RedisStorage) Generations(ctx context.Context) ([]string, error) {
	gens, err := s.rdb.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	slices.Sort(gens)
	return gens, nil
}

func (s *RedisStorage) DeleteGeneration(ctx context.Context, gen string) error {
	active, _, err := s.Active(ctx)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.genKey(gen))
		p.SRem(ctx, s.setKey(), gen)
		if active == gen {
			p.Del(ctx, s.activeKey())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete generation %s: %w", gen, err)
	}
	return nil
}

func (s *RedisStorage) SetActive(ctx context.Context, gen string) error {
	if err := s.rdb.Set(ctx, s.activeKey(), gen, 0).Err(); err != nil {
		return fmt.Errorf("set active generation: %w", err)
	}
	return nil
}

func (s *RedisStorage) Active(ctx context.Context) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.activeKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get active generation: %w", err)
	}
	return v, v != "", nil
}
