package rotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Ключ прошедшего дня никогда не меняется, TTL нужен только чтобы
// не копить устаревшие наборы.
const cacheTTL = 48 * time.Hour

// Cache хранит подобранные дневные наборы в Redis по ключу пользователь+день.
type Cache struct {
	client *redis.Client
}

// NewCache создаёт кэш дневных наборов поверх указанного клиента Redis.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func cacheKey(userID int64, dayKey string) string {
	return fmt.Sprintf("rotation:%d:%s", userID, dayKey)
}

// Get возвращает сохранённый набор для пары пользователь-день.
// Отсутствие записи не является ошибкой: возвращается (nil, false, nil).
func (c *Cache) Get(ctx context.Context, userID int64, dayKey string) ([]int64, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(userID, dayKey)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get rotation: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal([]byte(val), &ids); err != nil {
		return nil, false, fmt.Errorf("decode rotation: %w", err)
	}

	return ids, true, nil
}

// Set сохраняет набор для пары пользователь-день.
func (c *Cache) Set(ctx context.Context, userID int64, dayKey string, ids []int64) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode rotation: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(userID, dayKey), data, cacheTTL).Err(); err != nil {
		return fmt.Errorf("set rotation: %w", err)
	}

	return nil
}
