package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContentItem is a catalog entry. Read-only for this service; an empty
// required-subscription set means open to any authenticated student.
type ContentItem struct {
	ID                    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title                 string             `json:"title" bson:"title"`
	VideoURL              string             `json:"videoUrl" bson:"video_url"`
	RequiredSubscriptions []string           `json:"requiredSubscriptions" bson:"required_subscriptions"`
	CreatedAt             time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt             time.Time          `json:"updatedAt" bson:"updated_at"`
}
