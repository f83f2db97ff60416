package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"edustream-access-svc/src/internal/config"
	"edustream-access-svc/src/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service caches read-mostly catalog records. Session validity is never
// cached; revocation must take effect on the next request.
type Service interface {
	GetContentItem(ctx context.Context, contentID string) (*models.ContentItem, error)
	CacheContentItem(ctx context.Context, item *models.ContentItem) error
}

const contentKeyPattern = "content:%s"

type cacheService struct {
	client *redis.Client
	cfg    *config.CacheConfig
}

func NewCacheService(client *redis.Client, cfg *config.Configuration) Service {
	return &cacheService{
		client: client,
		cfg:    &cfg.Cache,
	}
}

func (c *cacheService) GetContentItem(ctx context.Context, contentID string) (*models.ContentItem, error) {
	key := fmt.Sprintf(contentKeyPattern, contentID)

	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logrus.WithField("key", key).Debug("Content item not found in cache")
			return nil, nil // Not an error, just not found
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to get content item from cache")
		return nil, models.ErrRedisGet
	}

	var item models.ContentItem
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to unmarshal content item from cache")
		return nil, models.ErrRedisGet
	}

	logrus.WithField("key", key).Debug("Content item retrieved from cache")
	return &item, nil
}

func (c *cacheService) CacheContentItem(ctx context.Context, item *models.ContentItem) error {
	key := fmt.Sprintf(contentKeyPattern, item.ID.Hex())

	data, err := json.Marshal(item)
	if err != nil {
		logrus.WithError(err).WithField("content_id", item.ID.Hex()).Error("Failed to marshal content item for cache")
		return models.ErrRedisSet
	}

	expiration := time.Duration(c.cfg.ContentExpirationMinutes) * time.Minute
	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		logrus.WithError(err).WithField("content_id", item.ID.Hex()).Error("Failed to cache content item")
		return models.ErrRedisSet
	}

	logrus.WithField("content_id", item.ID.Hex()).Debug("Content item cached")
	return nil
}
