package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Account is the authoritative credential-store record for one user.
// The session marker is the only field this service writes concurrently;
// everything else is read-mostly and edited through admin tooling.
type Account struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email          string             `json:"email" bson:"email"`
	Phone          *string            `json:"phone,omitempty" bson:"phone,omitempty"`
	FirstName      string             `json:"firstName" bson:"first_name"`
	LastName       string             `json:"lastName" bson:"last_name"`
	Role           string             `json:"role" bson:"role"`
	Subscriptions  []string           `json:"subscriptions" bson:"subscriptions"`
	ExpiresAt      time.Time          `json:"expiresAt" bson:"expires_at"`
	SessionMarker  *string            `json:"-" bson:"session_marker,omitempty"`
	LastLoginAt    *time.Time         `json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
	ForcedLogoutAt *time.Time         `json:"forcedLogoutAt,omitempty" bson:"forced_logout_at,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Role constants
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// IsAdmin checks if account has admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsExpired reports whether the account credentials have lapsed.
// Admin accounts carry a far-future expiry and never trip this.
func (a *Account) IsExpired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// HasActiveMarker reports whether a device currently holds a session.
func (a *Account) HasActiveMarker() bool {
	return a.SessionMarker != nil && *a.SessionMarker != ""
}
