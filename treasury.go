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

package treasury

import (
	"embed"
	"fmt"
	"time"

	"github.com/pipline/treasury/config"
	"github.com/pipline/treasury/database"
	"github.com/pipline/treasury/internal/cache"
	redis_db "github.com/pipline/treasury/internal/redis-db"
	"github.com/pipline/treasury/model"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

//go:embed sql/*.sql
var SQLFiles embed.FS

var tracer = otel.Tracer("treasury")

// Treasury wraps the balance engine with storage, caching, locking and
// the recompute queue.
type Treasury struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	cache      cache.Cache
	queue      *Queue
	conf       *config.Configuration
	normalizer *model.Normalizer
	now        func() time.Time
}

// NewTreasury builds a Treasury from the loaded configuration.
func NewTreasury(db database.IDataSource) (*Treasury, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{conf.Redis.Dns})
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	queue, err := NewQueue(conf)
	if err != nil {
		return nil, err
	}
	return NewTreasuryWithClients(db, redisClient.Client(), queue, conf), nil
}

// NewTreasuryWithClients builds a Treasury on already connected clients.
// queue may be nil, in which case every recompute runs inline.
func NewTreasuryWithClients(db database.IDataSource, client redis.UniversalClient, queue *Queue, conf *config.Configuration) *Treasury {
	return &Treasury{
		datasource: db,
		redis:      client,
		cache:      cache.NewCache(client),
		queue:      queue,
		conf:       conf,
		normalizer: conf.Settlement.Normalizer(),
		now:        time.Now,
	}
}

// Normalizer exposes the currency normalizer built from configuration.
func (t *Treasury) Normalizer() *model.Normalizer {
	return t.normalizer
}

// Close releases the queue client.
func (t *Treasury) Close() error {
	if t.queue == nil {
		return nil
	}
	return t.queue.Close()
}

// PendingRecomputes reports queued recompute tasks, zero when running without a queue.
func (t *Treasury) PendingRecomputes() (int, error) {
	if t.queue == nil {
		return 0, nil
	}
	return t.queue.Pending()
}
