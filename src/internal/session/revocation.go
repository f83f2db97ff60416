package session

import (
	"context"
	"errors"
	"time"

	"edustream-access-svc/src/internal/account"
	"edustream-access-svc/src/internal/identity"
	"edustream-access-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// RevocationController ends sessions: administratively for any account, or
// by the account holder for their own.
type RevocationController interface {
	ForceLogout(ctx context.Context, accountID string) error
	Logout(ctx context.Context, claims *identity.Claims) error
}

type revocationController struct {
	accounts account.Repository
	verifier identity.Verifier
	activity ActivityPublisher
}

func NewRevocationController(accounts account.Repository, verifier identity.Verifier, activity ActivityPublisher) RevocationController {
	return &revocationController{
		accounts: accounts,
		verifier: verifier,
		activity: activity,
	}
}

// ForceLogout terminates an account's active session: the revocation stamp
// is written, the marker cleared, and every outstanding identity proof
// invalidated best effort. Safe to repeat; the end state is the same.
func (r *revocationController) ForceLogout(ctx context.Context, accountID string) error {
	if _, err := r.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return models.ErrAccountNotFound
		}
		return models.ErrServiceUnavailable
	}

	now := time.Now()
	if err := r.accounts.SetForceLogout(ctx, accountID, now); err != nil {
		return models.ErrServiceUnavailable
	}

	if err := r.accounts.ClearSessionMarker(ctx, accountID); err != nil {
		return models.ErrServiceUnavailable
	}

	// Cross-device invalidation never fails the revocation itself.
	if err := r.verifier.InvalidateAll(ctx, accountID); err != nil {
		logrus.WithError(err).WithField("account_id", accountID).
			Warn("Failed to invalidate outstanding identity proofs")
	}

	r.publish(models.ActionForceLogout, accountID)

	logrus.WithField("account_id", accountID).Info("Account forcibly logged out")
	return nil
}

// Logout clears the caller's own marker and ends the presented proof. The
// force-logout stamp is untouched.
func (r *revocationController) Logout(ctx context.Context, claims *identity.Claims) error {
	if err := r.accounts.ClearSessionMarker(ctx, claims.AccountID); err != nil {
		return models.ErrServiceUnavailable
	}

	if err := r.verifier.EndProof(ctx, claims); err != nil {
		return models.ErrServiceUnavailable
	}

	r.publish(models.ActionLogout, claims.AccountID)

	logrus.WithField("account_id", claims.AccountID).Debug("Account logged out")
	return nil
}

func (r *revocationController) publish(action, accountID string) {
	if r.activity == nil {
		return
	}
	err := r.activity.PublishActivity(models.ActivityMessage{
		AccountID:   accountID,
		ServiceName: models.ServiceSessionRevoke,
		Action:      action,
		Timestamp:   time.Now(),
	})
	if err != nil {
		logrus.WithError(err).WithField("account_id", accountID).
			Warn("Failed to publish revocation activity")
	}
}
