package content

import (
	"context"
	"errors"
	"net/http"
	"time"

	"edustream-access-svc/src/internal/access"
	"edustream-access-svc/src/internal/cache"
	"edustream-access-svc/src/internal/config"
	"edustream-access-svc/src/internal/models"
	"edustream-access-svc/src/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	GetContent(c *gin.Context)
}

type handler struct {
	config       *config.Configuration
	repository   Repository
	cacheService cache.Service
	activity     session.ActivityPublisher
}

func NewHandler(cfg *config.Configuration, repository Repository, cacheService cache.Service, activity session.ActivityPublisher) Handler {
	return &handler{
		config:       cfg,
		repository:   repository,
		cacheService: cacheService,
		activity:     activity,
	}
}

// GetContent gates a catalog item behind the subscription check and returns
// its video link. Runs behind RequireAuth, so the account in the context is
// already validated.
func (h *handler) GetContent(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	contentID := c.Param("id")
	if contentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content ID is required"})
		return
	}

	acc := c.MustGet("account").(*models.Account)

	item, err := h.loadContentItem(ctx, contentID)
	if err != nil {
		if errors.Is(err, models.ErrContentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
			return
		}
		logrus.WithError(err).WithField("content_id", contentID).Error("Failed to load content item")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
		return
	}

	decision := access.Authorize(acc.Role, acc.Subscriptions, item.RequiredSubscriptions)
	if !decision.Allowed {
		logrus.WithFields(logrus.Fields{
			"account_id": acc.ID.Hex(),
			"content_id": contentID,
			"required":   decision.Required,
			"held":       decision.Held,
		}).Info("Content access denied: no subscription overlap")

		h.publish(models.ActionContentDenied, acc.ID.Hex(), contentID)

		c.JSON(http.StatusForbidden, gin.H{
			"message":  "Your subscriptions do not cover this content",
			"required": orEmpty(decision.Required),
			"held":     orEmpty(decision.Held),
		})
		return
	}

	h.publish(models.ActionContentAccess, acc.ID.Hex(), contentID)

	c.JSON(http.StatusOK, gin.H{
		"id":         item.ID.Hex(),
		"title":      item.Title,
		"contentUrl": item.VideoURL,
	})
}

// loadContentItem checks the cache first and falls back to the store.
func (h *handler) loadContentItem(ctx context.Context, contentID string) (*models.ContentItem, error) {
	item, err := h.cacheService.GetContentItem(ctx, contentID)
	if err == nil && item != nil {
		return item, nil
	}

	item, err = h.repository.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	if cacheErr := h.cacheService.CacheContentItem(ctx, item); cacheErr != nil {
		logrus.WithError(cacheErr).WithField("content_id", contentID).Warn("Failed to cache content item")
	}

	return item, nil
}

func (h *handler) publish(action, accountID, contentID string) {
	if h.activity == nil {
		return
	}
	err := h.activity.PublishActivity(models.ActivityMessage{
		AccountID:   accountID,
		ServiceName: models.ServiceContentDelivery,
		Action:      action,
		ContentID:   contentID,
		Timestamp:   time.Now(),
	})
	if err != nil {
		logrus.WithError(err).WithField("account_id", accountID).
			Warn("Failed to publish content activity")
	}
}

func orEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
