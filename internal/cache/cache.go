/*
Copyright 2024 PipLine Treasury Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// Cache stores read models (balances, summaries) keyed by query.
type Cache interface {
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Get decodes the value under key into data and reports whether it was found.
	Get(ctx context.Context, key string, data interface{}) (bool, error)

	Delete(ctx context.Context, key string) error

	// Key scopes key to the current generation of namespace.
	Key(ctx context.Context, namespace, key string) (string, error)

	// Invalidate moves namespace to a new generation, orphaning every key built with Key.
	Invalidate(ctx context.Context, namespace string) error
}

// RedisCache is a Redis-backed cache fronted by a local TinyLFU cache.
// Values are stored as JSON.
type RedisCache struct {
	cache  *cache.Cache
	client redis.UniversalClient
}

const (
	localCacheSize = 10000
	localCacheTTL  = 30 * time.Second
)

func NewCache(client redis.UniversalClient) *RedisCache {
	c := cache.New(&cache.Options{
		Redis:      client,
		LocalCache: cache.NewTinyLFU(localCacheSize, localCacheTTL),
		Marshal:    json.Marshal,
		Unmarshal:  json.Unmarshal,
	})
	return &RedisCache{cache: c, client: client}
}

func (r *RedisCache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	return r.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: data,
		TTL:   ttl,
	})
}

func (r *RedisCache) Get(ctx context.Context, key string, data interface{}) (bool, error) {
	err := r.cache.Get(ctx, key, data)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	err := r.cache.Delete(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func generationKey(namespace string) string {
	return fmt.Sprintf("cache:generation:%s", namespace)
}

func (r *RedisCache) Key(ctx context.Context, namespace, key string) (string, error) {
	gen, err := r.client.Get(ctx, generationKey(namespace)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s", namespace, gen, key), nil
}

func (r *RedisCache) Invalidate(ctx context.Context, namespace string) error {
	return r.client.Incr(ctx, generationKey(namespace)).Err()
}
