// Package cache кэширует страницы каталога в Redis.
//
// Ключ страницы включает номер поколения. Любое событие, меняющее каталог,
// увеличивает поколение, и старые ключи просто истекают по TTL.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rajivgeraev/rewear-api/internal/events"
	"github.com/rajivgeraev/rewear-api/internal/models"
)

const generationKey = "browse:gen"

// NewClient создаёт клиент Redis и проверяет соединение
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
	}
	return rdb, nil
}

// HitCounter считает попадания и промахи
type HitCounter interface {
	Hit()
	Miss()
}

// BrowseCache кэш страниц публичного каталога
type BrowseCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	log     zerolog.Logger
	counter HitCounter
}

// NewBrowseCache создаёт кэш каталога
func NewBrowseCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger, counter HitCounter) *BrowseCache {
	return &BrowseCache{rdb: rdb, ttl: ttl, log: log, counter: counter}
}

func (c *BrowseCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *BrowseCache) key(gen int64, q models.ItemQuery) string {
	sum := sha1.Sum([]byte(q.CacheKey()))
	return fmt.Sprintf("browse:%d:%s", gen, hex.EncodeToString(sum[:]))
}

// Get возвращает страницу из кэша и поколение, под которым её искали.
// Ошибки Redis считаются промахом, поколение тогда равно -1.
func (c *BrowseCache) Get(ctx context.Context, q models.ItemQuery) (*models.ItemPage, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("кэш каталога: не удалось прочитать поколение")
		c.miss()
		return nil, -1, false
	}

	data, err := c.rdb.Get(ctx, c.key(gen, q)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("кэш каталога: ошибка чтения")
		}
		c.miss()
		return nil, gen, false
	}

	var page models.ItemPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.miss()
		return nil, gen, false
	}
	if c.counter != nil {
		c.counter.Hit()
	}
	return &page, gen, true
}

// Set сохраняет страницу под поколением gen, полученным от Get до чтения из хранилища.
// Если каталог успел измениться, страница ляжет под устаревшее поколение и не будет прочитана.
func (c *BrowseCache) Set(ctx context.Context, gen int64, q models.ItemQuery, page *models.ItemPage) {
	if gen < 0 {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(gen, q), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("кэш каталога: ошибка записи")
	}
}

// Invalidate делает все сохранённые страницы устаревшими
func (c *BrowseCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, generationKey).Err()
}

// Invalidator возвращает издателя, который сбрасывает кэш на событиях каталога
func (c *BrowseCache) Invalidator() events.Publisher {
	return invalidator{c}
}

type invalidator struct {
	c *BrowseCache
}

func (i invalidator) Publish(ctx context.Context, e events.Event) error {
	if !e.Type.AffectsBrowse() {
		return nil
	}
	return i.c.Invalidate(ctx)
}

func (c *BrowseCache) miss() {
	if c.counter != nil {
		c.counter.Miss()
	}
}
