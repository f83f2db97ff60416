package content

import (
	"context"
	"errors"

	"edustream-access-svc/src/clients"
	"edustream-access-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository reads the content catalog. The catalog is owned by admin
// tooling; this service never writes it.
type Repository interface {
	GetByID(ctx context.Context, contentID string) (*models.ContentItem, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewContentRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

func (r *repository) GetByID(ctx context.Context, contentID string) (*models.ContentItem, error) {
	oid, err := primitive.ObjectIDFromHex(contentID)
	if err != nil {
		return nil, models.ErrContentNotFound
	}

	var item models.ContentItem
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrContentNotFound
		}
		logrus.WithError(err).WithField("content_id", contentID).Error("Failed to get content item")
		return nil, models.ErrDatabaseQuery
	}

	return &item, nil
}
