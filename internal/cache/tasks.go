package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"taskboard/internal/models"
	"taskboard/pkg/logger"
)

// TTL mengikuti masa simpan cache task di versi sebelumnya.
const TTL = time.Hour

// TaskCache menyimpan daftar task per user di Redis.
// Cache bersifat best-effort: kegagalan Redis hanya dicatat, tidak pernah
// menggagalkan request. Client nil berarti cache dimatikan.
type TaskCache struct {
	client *redis.Client
}

func NewTaskCache(client *redis.Client) *TaskCache {
	return &TaskCache{client: client}
}

func key(userID string) string {
	return fmt.Sprintf("tasks:%s", userID)
}

// GetList mengambil daftar task user dari cache.
// ok bernilai false saat cache miss, dimatikan, atau isi cache rusak.
func (c *TaskCache) GetList(ctx context.Context, userID string) ([]models.Task, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.ErrorLogger.Error("Error reading task cache", zap.Error(err))
		}
		return nil, false
	}
	var tasks []models.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		logger.ErrorLogger.Error("Error decoding task cache", zap.Error(err))
		return nil, false
	}
	return tasks, true
}

// SetList menyimpan daftar task user selama TTL.
func (c *TaskCache) SetList(ctx context.Context, userID string, tasks []models.Task) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key(userID), raw, TTL).Err(); err != nil {
		logger.ErrorLogger.Error("Error caching tasks", zap.Error(err))
	}
}

// Invalidate membuang entry cache user. Dipanggil pada setiap mutasi task.
func (c *TaskCache) Invalidate(ctx context.Context, userID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		logger.ErrorLogger.Error("Error invalidating task cache", zap.Error(err))
	}
}
