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

// Status is a session verdict. Every account state maps to exactly one
// status; the checks in Validate run in fixed precedence order.
type Status string

const (
	StatusNoSession          Status = "no_session"
	StatusProfileNotFound    Status = "profile_not_found"
	StatusExpired            Status = "expired"
	StatusForceLogout        Status = "force_logout"
	StatusSessionInvalidated Status = "session_invalidated"
	StatusValid              Status = "valid"
)

type Verdict struct {
	Status  Status
	Role    string
	Account *models.Account
}

// Authenticated reports whether the verdict admits the caller.
func (v *Verdict) Authenticated() bool {
	return v.Status == StatusValid
}

type Validator interface {
	Validate(ctx context.Context, claims *identity.Claims) (*Verdict, error)
}

type validator struct {
	accounts account.Repository
	verifier identity.Verifier
}

func NewValidator(accounts account.Repository, verifier identity.Verifier) Validator {
	return &validator{
		accounts: accounts,
		verifier: verifier,
	}
}

// Validate decides the current validity of the caller's session. The
// account record is read fresh on every call so a revocation takes effect
// immediately. On every non-valid verdict past the proof checks the proof
// itself is ended, best effort, so the client cannot keep presenting it.
func (v *validator) Validate(ctx context.Context, claims *identity.Claims) (*Verdict, error) {
	if claims == nil {
		return &Verdict{Status: StatusNoSession}, nil
	}

	acc, err := v.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return &Verdict{Status: StatusProfileNotFound}, nil
		}
		return nil, models.ErrServiceUnavailable
	}

	if acc.IsExpired(time.Now()) {
		v.endProofBestEffort(ctx, claims)
		return &Verdict{Status: StatusExpired, Role: acc.Role, Account: acc}, nil
	}

	if acc.Role == models.RoleStudent && forciblyLoggedOut(acc) {
		v.endProofBestEffort(ctx, claims)
		return &Verdict{Status: StatusForceLogout, Role: acc.Role, Account: acc}, nil
	}

	if acc.Role == models.RoleStudent && !acc.HasActiveMarker() {
		v.endProofBestEffort(ctx, claims)
		return &Verdict{Status: StatusSessionInvalidated, Role: acc.Role, Account: acc}, nil
	}

	return &Verdict{Status: StatusValid, Role: acc.Role, Account: acc}, nil
}

// forciblyLoggedOut reports whether the currently held marker predates an
// administrative revocation.
func forciblyLoggedOut(acc *models.Account) bool {
	return acc.ForcedLogoutAt != nil &&
		acc.LastLoginAt != nil &&
		acc.ForcedLogoutAt.After(*acc.LastLoginAt)
}

func (v *validator) endProofBestEffort(ctx context.Context, claims *identity.Claims) {
	if err := v.verifier.EndProof(ctx, claims); err != nil {
		logrus.WithError(err).WithField("account_id", claims.AccountID).
			Warn("Failed to end identity proof")
	}
}
