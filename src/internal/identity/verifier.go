package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"edustream-access-svc/src/clients"
	"edustream-access-svc/src/internal/config"
	"edustream-access-svc/src/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// Claims represents JWT proof claims
type Claims struct {
	AccountID string `json:"accountId"`
	Role      string `json:"role"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// Verifier owns everything about proofs of identity: checking a secret
// against the stored credential, minting a bearer proof for the client,
// and revoking proofs one at a time or account-wide.
type Verifier interface {
	VerifySecret(ctx context.Context, handle, secret string) error
	IssueProof(ctx context.Context, account *models.Account) (string, *Claims, error)
	ParseProof(ctx context.Context, tokenString string) (*Claims, error)
	EndProof(ctx context.Context, claims *Claims) error
	InvalidateAll(ctx context.Context, accountID string) error
}

const (
	proofDenyKeyPattern   = "revoked:proof:%s"   // revoked:proof:jti
	accountDenyKeyPattern = "revoked:account:%s" // revoked:account:accountID
)

type credential struct {
	AccountID  string   `bson:"account_id"`
	Handles    []string `bson:"handles"`
	SecretHash []byte   `bson:"secret_hash"`
}

type verifier struct {
	credentials *mongo.Collection
	redis       *redis.Client
	jwtSecret   string
	proofTTL    time.Duration
}

// NewVerifier creates a verifier backed by the credential collection and Redis.
func NewVerifier(db *clients.MongoDB, redisClient *redis.Client, cfg *config.Configuration) Verifier {
	return &verifier{
		credentials: db.Database.Collection(cfg.Database.CredentialCollection),
		redis:       redisClient,
		jwtSecret:   cfg.Security.JwtKey,
		proofTTL:    time.Duration(cfg.Security.ProofTTLMinutes) * time.Minute,
	}
}

// VerifySecret checks a plaintext secret against the stored hash for a handle.
// Unknown handle and wrong secret both map to ErrInvalidCredentials.
func (v *verifier) VerifySecret(ctx context.Context, handle, secret string) error {
	var cred credential
	filter := bson.M{"handles": handle}

	err := v.credentials.FindOne(ctx, filter).Decode(&cred)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrInvalidCredentials
		}
		logrus.WithError(err).Error("Failed to load credential record")
		return models.ErrServiceUnavailable
	}

	if err := bcrypt.CompareHashAndPassword(cred.SecretHash, []byte(secret)); err != nil {
		return models.ErrInvalidCredentials
	}

	return nil
}

// IssueProof mints a signed access proof for the account.
func (v *verifier) IssueProof(ctx context.Context, account *models.Account) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: account.ID.Hex(),
		Role:      account.Role,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.proofTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(v.jwtSecret))
	if err != nil {
		logrus.WithError(err).Error("Failed to sign identity proof")
		return "", nil, models.ErrServiceUnavailable
	}

	return signed, claims, nil
}

// ParseProof validates signature and expiry, then checks the revocation
// denylist. A revoked or malformed proof yields ErrProofRevoked or
// ErrUnauthorized; Redis failures yield ErrServiceUnavailable.
func (v *verifier) ParseProof(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(v.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, models.ErrUnauthorized
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.TokenType != "access" {
		return nil, models.ErrUnauthorized
	}

	revoked, err := v.isRevoked(ctx, claims)
	if err != nil {
		return nil, models.ErrServiceUnavailable
	}
	if revoked {
		return nil, models.ErrProofRevoked
	}

	return claims, nil
}

func (v *verifier) isRevoked(ctx context.Context, claims *Claims) (bool, error) {
	exists, err := v.redis.Exists(ctx, fmt.Sprintf(proofDenyKeyPattern, claims.ID)).Result()
	if err != nil {
		logrus.WithError(err).Error("Failed to check proof denylist")
		return false, models.ErrRedisGet
	}
	if exists > 0 {
		return true, nil
	}

	cutoff, err := v.redis.Get(ctx, fmt.Sprintf(accountDenyKeyPattern, claims.AccountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		logrus.WithError(err).Error("Failed to check account denylist")
		return false, models.ErrRedisGet
	}

	cutoffUnix, err := strconv.ParseInt(cutoff, 10, 64)
	if err != nil {
		logrus.WithField("cutoff", cutoff).Error("Malformed account denylist entry")
		return false, models.ErrRedisGet
	}

	return claims.IssuedAt != nil && claims.IssuedAt.Unix() < cutoffUnix, nil
}

// EndProof revokes a single proof for its remaining lifetime.
func (v *verifier) EndProof(ctx context.Context, claims *Claims) error {
	ttl := v.proofTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		// Already past expiry, nothing left to revoke.
		return nil
	}

	key := fmt.Sprintf(proofDenyKeyPattern, claims.ID)
	if err := v.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		logrus.WithError(err).WithField("jti", claims.ID).Error("Failed to revoke proof")
		return models.ErrRedisSet
	}

	logrus.WithFields(logrus.Fields{
		"jti":        claims.ID,
		"account_id": claims.AccountID,
	}).Debug("Identity proof ended")
	return nil
}

// InvalidateAll revokes every proof issued to the account before now.
// Proofs minted in the same second survive; a login racing the revocation
// gets its marker cleared by the revocation controller anyway.
func (v *verifier) InvalidateAll(ctx context.Context, accountID string) error {
	key := fmt.Sprintf(accountDenyKeyPattern, accountID)
	cutoff := strconv.FormatInt(time.Now().Unix(), 10)

	if err := v.redis.Set(ctx, key, cutoff, v.proofTTL).Err(); err != nil {
		logrus.WithError(err).WithField("account_id", accountID).Error("Failed to invalidate account proofs")
		return models.ErrRedisSet
	}

	logrus.WithField("account_id", accountID).Info("All identity proofs invalidated")
	return nil
}
