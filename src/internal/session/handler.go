package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"edustream-access-svc/src/internal/config"
	"edustream-access-svc/src/internal/identity"
	"edustream-access-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	Login(c *gin.Context)
	Logout(c *gin.Context)
	CheckSession(c *gin.Context)
	ForceLogout(c *gin.Context)
}

type handler struct {
	config     *config.Configuration
	issuer     Issuer
	revocation RevocationController
}

func NewHandler(cfg *config.Configuration, issuer Issuer, revocation RevocationController) Handler {
	return &handler{
		config:     cfg,
		issuer:     issuer,
		revocation: revocation,
	}
}

// LoginRequest carries a primary or secondary handle plus the secret.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

func (h *handler) Login(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifier and secret are required"})
		return
	}

	result, err := h.issuer.Authenticate(ctx, req.Identifier, req.Secret)
	if err != nil {
		h.handleLoginError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"role":     result.Role,
		"degraded": result.Degraded,
	}).Info("Login successful")

	response := gin.H{
		"success": true,
		"role":    result.Role,
		"token":   result.Proof,
	}
	if result.SessionMarker != "" {
		response["sessionMarker"] = result.SessionMarker
	}

	c.JSON(http.StatusOK, response)
}

func (h *handler) handleLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":  "Invalid credentials",
			"reason": "invalid_credentials",
		})
	case errors.Is(err, models.ErrSessionConflict):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":  "An active session already exists for this account",
			"reason": "session_conflict",
		})
	case errors.Is(err, models.ErrCredentialsExpired):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Account subscription has expired",
			"reason":  "credentials_expired",
			"expired": true,
		})
	default:
		logrus.WithError(err).Error("Login failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
	}
}

func (h *handler) Logout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	claims := c.MustGet("claims").(*identity.Claims)

	if err := h.revocation.Logout(ctx, claims); err != nil {
		logrus.WithError(err).WithField("account_id", claims.AccountID).Error("Logout failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Service temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out",
	})
}

// CheckSession reports the verdict for the presented proof. RequireAuth has
// already rejected everything except a valid session.
func (h *handler) CheckSession(c *gin.Context) {
	role := c.MustGet("user_role").(string)

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"role":          role,
	})
}

func (h *handler) ForceLogout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	accountID := c.Param("id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account ID is required"})
		return
	}

	adminID, _ := c.Get("account_id")
	logrus.WithFields(logrus.Fields{
		"admin_id":   adminID,
		"account_id": accountID,
	}).Info("Force logout requested")

	if err := h.revocation.ForceLogout(ctx, accountID); err != nil {
		switch {
		case errors.Is(err, models.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		default:
			logrus.WithError(err).WithField("account_id", accountID).Error("Force logout failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service temporarily unavailable",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Account session terminated",
	})
}
