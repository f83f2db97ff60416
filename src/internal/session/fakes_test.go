package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"edustream-access-svc/src/internal/identity"
	"edustream-access-svc/src/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore is an in-memory account.Repository with error injection.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account

	findErr   error
	casErr    error
	casDenies int                        // CAS calls to reject before honoring them
	afterDeny func(acc *models.Account) // runs after a denied CAS, simulating the racing writer
	casCalls  int
}

func newFakeStore(accounts ...*models.Account) *fakeStore {
	s := &fakeStore{accounts: make(map[string]*models.Account)}
	for _, acc := range accounts {
		s.accounts[acc.ID.Hex()] = acc
	}
	return s
}

func (s *fakeStore) get(id string) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

func copyAccount(acc *models.Account) *models.Account {
	cp := *acc
	return &cp
}

func (s *fakeStore) FindByHandle(_ context.Context, handle string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, acc := range s.accounts {
		if acc.Email == handle || (acc.Phone != nil && *acc.Phone == handle) {
			return copyAccount(acc), nil
		}
	}
	return nil, models.ErrAccountNotFound
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	acc, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return copyAccount(acc), nil
}

func (s *fakeStore) CASSessionMarker(_ context.Context, id string, expected *string, marker string, loginAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casCalls++

	if s.casErr != nil {
		return false, s.casErr
	}

	acc, ok := s.accounts[id]
	if !ok {
		return false, nil
	}

	if s.casDenies > 0 {
		s.casDenies--
		if s.afterDeny != nil {
			s.afterDeny(acc)
		}
		return false, nil
	}

	switch {
	case expected == nil:
		if acc.SessionMarker != nil {
			return false, nil
		}
	default:
		if acc.SessionMarker == nil || *acc.SessionMarker != *expected {
			return false, nil
		}
	}

	acc.SessionMarker = &marker
	acc.LastLoginAt = &loginAt
	return true, nil
}

func (s *fakeStore) ClearSessionMarker(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil
	}
	acc.SessionMarker = nil
	return nil
}

func (s *fakeStore) SetForceLogout(_ context.Context, id string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil
	}
	if acc.ForcedLogoutAt == nil || ts.After(*acc.ForcedLogoutAt) {
		acc.ForcedLogoutAt = &ts
	}
	return nil
}

// fakeVerifier is an in-memory identity.Verifier that records calls.
type fakeVerifier struct {
	mu          sync.Mutex
	secrets     map[string]string // handle -> secret
	verifyCalls int
	issued      int
	ended       []string // jti of ended proofs
	invalidated []string // account ids
	endErr      error
	invalErr    error
}

func newFakeVerifier(secrets map[string]string) *fakeVerifier {
	if secrets == nil {
		secrets = make(map[string]string)
	}
	return &fakeVerifier{secrets: secrets}
}

func (v *fakeVerifier) VerifySecret(_ context.Context, handle, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.verifyCalls++
	if stored, ok := v.secrets[handle]; ok && stored == secret {
		return nil
	}
	return models.ErrInvalidCredentials
}

func (v *fakeVerifier) IssueProof(_ context.Context, acc *models.Account) (string, *identity.Claims, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	now := time.Now()
	claims := &identity.Claims{
		AccountID: acc.ID.Hex(),
		Role:      acc.Role,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("jti-%d", v.issued),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	return "proof-" + claims.ID, claims, nil
}

func (v *fakeVerifier) ParseProof(_ context.Context, _ string) (*identity.Claims, error) {
	return nil, models.ErrUnauthorized
}

func (v *fakeVerifier) EndProof(_ context.Context, claims *identity.Claims) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.endErr != nil {
		return v.endErr
	}
	v.ended = append(v.ended, claims.ID)
	return nil
}

func (v *fakeVerifier) InvalidateAll(_ context.Context, accountID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.invalErr != nil {
		return v.invalErr
	}
	v.invalidated = append(v.invalidated, accountID)
	return nil
}

func (v *fakeVerifier) endedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.ended)
}

func newStudent(email string, subs []string, expiresAt time.Time) *models.Account {
	return &models.Account{
		ID:            primitive.NewObjectID(),
		Email:         email,
		Role:          models.RoleStudent,
		Subscriptions: subs,
		ExpiresAt:     expiresAt,
		CreatedAt:     time.Now(),
	}
}

func newAdmin(email string) *models.Account {
	return &models.Account{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Role:      models.RoleAdmin,
		ExpiresAt: time.Now().AddDate(100, 0, 0),
		CreatedAt: time.Now(),
	}
}
