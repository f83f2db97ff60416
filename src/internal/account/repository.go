package account

import (
	"context"
	"errors"
	"time"

	"edustream-access-svc/src/clients"
	"edustream-access-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository exposes the credential-store operations the access core needs.
// Expiry and subscriptions are edited by admin tooling elsewhere; this
// service only ever writes the session marker and the force-logout stamp.
type Repository interface {
	FindByHandle(ctx context.Context, handle string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	CASSessionMarker(ctx context.Context, id string, expected *string, marker string, loginAt time.Time) (bool, error)
	ClearSessionMarker(ctx context.Context, id string) error
	SetForceLogout(ctx context.Context, id string, ts time.Time) error
}

type repository struct {
	collection *mongo.Collection
}

func NewAccountRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

// FindByHandle resolves an account by its primary or secondary handle.
func (r *repository) FindByHandle(ctx context.Context, handle string) (*models.Account, error) {
	var acc models.Account
	filter := bson.M{"$or": []bson.M{
		{"email": handle},
		{"phone": handle},
	}}

	err := r.collection.FindOne(ctx, filter).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAccountNotFound
		}
		logrus.WithError(err).WithField("handle", handle).Error("Failed to find account by handle")
		return nil, models.ErrDatabaseQuery
	}

	return &acc, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrAccountNotFound
	}

	var acc models.Account
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&acc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAccountNotFound
		}
		logrus.WithError(err).WithField("account_id", id).Error("Failed to find account by id")
		return nil, models.ErrDatabaseQuery
	}

	return &acc, nil
}

// CASSessionMarker writes a new session marker only if the stored value
// still equals expected (nil matches an absent or null marker). Returns
// false when a concurrent login got there first.
func (r *repository) CASSessionMarker(ctx context.Context, id string, expected *string, marker string, loginAt time.Time) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, models.ErrAccountNotFound
	}

	filter := bson.M{"_id": oid}
	if expected == nil {
		filter["session_marker"] = nil
	} else {
		filter["session_marker"] = *expected
	}

	update := bson.M{
		"$set": bson.M{
			"session_marker": marker,
			"last_login_at":  loginAt,
			"updated_at":     time.Now(),
		},
	}

	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		logrus.WithError(err).WithField("account_id", id).Error("Failed to write session marker")
		return false, models.ErrDatabaseUpdate
	}

	return res.ModifiedCount == 1, nil
}

func (r *repository) ClearSessionMarker(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrAccountNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"session_marker": nil,
			"updated_at":     time.Now(),
		},
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		logrus.WithError(err).WithField("account_id", id).Error("Failed to clear session marker")
		return models.ErrDatabaseUpdate
	}

	return nil
}

// SetForceLogout stamps the revocation time. $max keeps the stamp
// monotonically non-decreasing across repeated calls.
func (r *repository) SetForceLogout(ctx context.Context, id string, ts time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrAccountNotFound
	}

	update := bson.M{
		"$max": bson.M{"forced_logout_at": ts},
		"$set": bson.M{"updated_at": time.Now()},
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		logrus.WithError(err).WithField("account_id", id).Error("Failed to set force logout timestamp")
		return models.ErrDatabaseUpdate
	}

	return nil
}
