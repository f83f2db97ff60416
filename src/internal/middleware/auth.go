package middleware

import (
	"errors"
	"net/http"
	"strings"

	"edustream-access-svc/src/internal/identity"
	"edustream-access-svc/src/internal/models"
	"edustream-access-svc/src/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware handles authentication and authorization
type AuthMiddleware struct {
	verifier  identity.Verifier
	validator session.Validator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(verifier identity.Verifier, validator session.Validator) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		validator: validator,
	}
}

// RequireAuth parses the bearer proof and asks the validator for a verdict.
// Anything but a valid verdict is rejected with a machine-readable reason.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.resolveClaims(c)
		if c.IsAborted() {
			return
		}

		verdict, err := m.validator.Validate(c.Request.Context(), claims)
		if err != nil {
			logrus.WithError(err).Error("Session validation failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service temporarily unavailable",
			})
			c.Abort()
			return
		}

		if !verdict.Authenticated() {
			logrus.WithField("verdict", string(verdict.Status)).Debug("Session rejected")
			c.JSON(http.StatusUnauthorized, gin.H{
				"authenticated": false,
				"error":         "Session is not valid",
				"reason":        string(verdict.Status),
			})
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("account", verdict.Account)
		c.Set("account_id", verdict.Account.ID.Hex())
		c.Set("user_role", verdict.Role)

		logrus.WithFields(logrus.Fields{
			"account_id": verdict.Account.ID.Hex(),
			"user_role":  verdict.Role,
		}).Debug("Account authenticated successfully")

		c.Next()
	}
}

// resolveClaims extracts and parses the bearer proof. A missing or invalid
// proof produces nil claims, which the validator maps to a no-session
// verdict; only an unavailable revocation store aborts here.
func (m *AuthMiddleware) resolveClaims(c *gin.Context) *identity.Claims {
	token := extractToken(c)
	if token == "" {
		return nil
	}

	claims, err := m.verifier.ParseProof(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, models.ErrServiceUnavailable) {
			logrus.WithError(err).Error("Proof revocation check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service temporarily unavailable",
			})
			c.Abort()
			return nil
		}
		return nil
	}

	return claims
}

// RequireAdminRights checks if the account has admin privileges
func (m *AuthMiddleware) RequireAdminRights() gin.HandlerFunc {
	return func(c *gin.Context) {
		userRoleInterface, exists := c.Get("user_role")
		if !exists {
			logrus.Error("User role not found in context - ensure RequireAuth middleware runs first")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			c.Abort()
			return
		}

		userRole, ok := userRoleInterface.(string)
		if !ok {
			logrus.Error("Invalid user role format")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Invalid user role format",
			})
			c.Abort()
			return
		}

		if userRole != models.RoleAdmin {
			accountID, _ := c.Get("account_id")
			logrus.WithFields(logrus.Fields{
				"account_id": accountID,
				"user_role":  userRole,
			}).Warn("Account attempted to access admin endpoint without admin privileges")

			c.JSON(http.StatusForbidden, gin.H{
				"error": "Access forbidden - admin privileges required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractToken extracts the bearer proof from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		logrus.Debug("Invalid authorization header format")
		return ""
	}

	return strings.TrimPrefix(authHeader, "Bearer ")
}
