package session

import (
	"context"
	"errors"
	"time"

	"edustream-access-svc/src/internal/account"
	"edustream-access-svc/src/internal/identity"
	"edustream-access-svc/src/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ActivityPublisher is the best-effort audit sink. Failures are logged,
// never surfaced to the caller.
type ActivityPublisher interface {
	PublishActivity(message models.ActivityMessage) error
}

// AuthResult is a successful login. SessionMarker is empty for admins and
// for degraded logins where the marker write failed.
type AuthResult struct {
	Role          string
	SessionMarker string
	Proof         string
	Degraded      bool
}

type Issuer interface {
	Authenticate(ctx context.Context, identifier, secret string) (*AuthResult, error)
}

type issuer struct {
	accounts account.Repository
	verifier identity.Verifier
	activity ActivityPublisher
}

func NewIssuer(accounts account.Repository, verifier identity.Verifier, activity ActivityPublisher) Issuer {
	return &issuer{
		accounts: accounts,
		verifier: verifier,
		activity: activity,
	}
}

// Authenticate logs an account in. Students get a fresh session marker
// written with a compare-and-swap so two concurrent logins cannot both win;
// the loser sees an active-session conflict. The conflict check runs before
// the secret is verified, matching the platform's established behavior.
func (s *issuer) Authenticate(ctx context.Context, identifier, secret string) (*AuthResult, error) {
	acc, err := s.accounts.FindByHandle(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			// Unknown handle and wrong secret are indistinguishable to callers.
			return nil, models.ErrInvalidCredentials
		}
		return nil, models.ErrServiceUnavailable
	}

	if acc.Role == models.RoleStudent && acc.HasActiveMarker() {
		return nil, models.ErrSessionConflict
	}

	if err := s.verifier.VerifySecret(ctx, identifier, secret); err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, models.ErrServiceUnavailable
	}

	// Re-read the authoritative record after verification; role and expiry
	// may have been edited while the secret check was in flight.
	acc, err = s.accounts.FindByID(ctx, acc.ID.Hex())
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, models.ErrServiceUnavailable
	}

	proof, claims, err := s.verifier.IssueProof(ctx, acc)
	if err != nil {
		return nil, models.ErrServiceUnavailable
	}

	now := time.Now()
	if acc.IsExpired(now) {
		s.endProofBestEffort(ctx, claims)
		return nil, models.ErrCredentialsExpired
	}

	if acc.IsAdmin() {
		s.publish(models.ActionLogin, acc.ID.Hex())
		return &AuthResult{Role: acc.Role, Proof: proof}, nil
	}

	result, err := s.claimMarker(ctx, acc.ID.Hex(), now)
	if err != nil {
		s.endProofBestEffort(ctx, claims)
		return nil, err
	}

	result.Role = acc.Role
	result.Proof = proof

	if result.Degraded {
		s.publish(models.ActionLoginDegraded, acc.ID.Hex())
	} else {
		s.publish(models.ActionLogin, acc.ID.Hex())
	}

	return result, nil
}

// claimMarker attempts the CAS marker write, retrying once after losing a
// race. A store error falls back to degraded mode: the login succeeds but
// single-session enforcement is not guaranteed for it.
func (s *issuer) claimMarker(ctx context.Context, accountID string, loginAt time.Time) (*AuthResult, error) {
	marker := uuid.NewString()

	ok, err := s.accounts.CASSessionMarker(ctx, accountID, nil, marker, loginAt)
	if err != nil {
		logrus.WithError(err).WithField("account_id", accountID).
			Warn("Session marker write failed, login degraded: single-session enforcement not guaranteed")
		return &AuthResult{Degraded: true}, nil
	}
	if ok {
		return &AuthResult{SessionMarker: marker}, nil
	}

	// Lost the race to a concurrent login. Re-resolve once and try again.
	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, models.ErrServiceUnavailable
	}
	if acc.HasActiveMarker() {
		return nil, models.ErrSessionConflict
	}

	ok, err = s.accounts.CASSessionMarker(ctx, accountID, nil, marker, loginAt)
	if err != nil {
		logrus.WithError(err).WithField("account_id", accountID).
			Warn("Session marker write failed, login degraded: single-session enforcement not guaranteed")
		return &AuthResult{Degraded: true}, nil
	}
	if !ok {
		return nil, models.ErrSessionConflict
	}

	return &AuthResult{SessionMarker: marker}, nil
}

func (s *issuer) endProofBestEffort(ctx context.Context, claims *identity.Claims) {
	if err := s.verifier.EndProof(ctx, claims); err != nil {
		logrus.WithError(err).WithField("account_id", claims.AccountID).
			Warn("Failed to end identity proof")
	}
}

func (s *issuer) publish(action, accountID string) {
	if s.activity == nil {
		return
	}
	err := s.activity.PublishActivity(models.ActivityMessage{
		AccountID:   accountID,
		ServiceName: models.ServiceSessionIssuer,
		Action:      action,
		Timestamp:   time.Now(),
	})
	if err != nil {
		logrus.WithError(err).WithField("account_id", accountID).
			Warn("Failed to publish login activity")
	}
}
