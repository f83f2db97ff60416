package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"edustream-access-svc/src/internal/models"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	student := newStudent("amira@example.com", []string{"physics"}, time.Now().Add(24*time.Hour))
	store := newFakeStore(student)
	verifier := newFakeVerifier(map[string]string{"amira@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	result, err := issuer.Authenticate(context.Background(), "amira@example.com", "pa55word")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if result.Role != models.RoleStudent {
		t.Fatalf("role = %q, want %q", result.Role, models.RoleStudent)
	}
	if result.SessionMarker == "" {
		t.Fatal("expected a session marker for a student login")
	}
	if result.Proof == "" {
		t.Fatal("expected an identity proof")
	}
	if result.Degraded {
		t.Fatal("login should not be degraded")
	}

	stored := store.get(student.ID.Hex())
	if stored.SessionMarker == nil || *stored.SessionMarker != result.SessionMarker {
		t.Fatal("session marker not persisted")
	}
	if stored.LastLoginAt == nil {
		t.Fatal("last login timestamp not persisted")
	}
}

func TestAuthenticateSecondaryHandle(t *testing.T) {
	phone := "+33612345678"
	student := newStudent("noe@example.com", nil, time.Now().Add(24*time.Hour))
	student.Phone = &phone
	store := newFakeStore(student)
	verifier := newFakeVerifier(map[string]string{phone: "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	result, err := issuer.Authenticate(context.Background(), phone, "pa55word")
	if err != nil {
		t.Fatalf("authenticate by phone: %v", err)
	}
	if result.SessionMarker == "" {
		t.Fatal("expected a session marker")
	}
}

func TestAuthenticateUnknownHandle(t *testing.T) {
	store := newFakeStore()
	verifier := newFakeVerifier(nil)
	issuer := NewIssuer(store, verifier, nil)

	_, err := issuer.Authenticate(context.Background(), "ghost@example.com", "whatever")
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	student := newStudent("amira@example.com", nil, time.Now().Add(24*time.Hour))
	store := newFakeStore(student)
	verifier := newFakeVerifier(map[string]string{"amira@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	_, err := issuer.Authenticate(context.Background(), "amira@example.com", "not-it")
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if store.get(student.ID.Hex()).SessionMarker != nil {
		t.Fatal("marker must stay clear after a failed login")
	}
}

func TestAuthenticateExpiredCredentials(t *testing.T) {
	student := newStudent("late@example.com", nil, time.Now().Add(-time.Hour))
	store := newFakeStore(student)
	verifier := newFakeVerifier(map[string]string{"late@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	_, err := issuer.Authenticate(context.Background(), "late@example.com", "pa55word")
	if !errors.Is(err, models.ErrCredentialsExpired) {
		t.Fatalf("err = %v, want ErrCredentialsExpired", err)
	}
	if verifier.endedCount() != 1 {
		t.Fatal("the just-established proof must be ended on expiry")
	}
}

func TestAuthenticateConflictBeforeSecretCheck(t *testing.T) {
	marker := "existing-marker"
	student := newStudent("amira@example.com", nil, time.Now().Add(24*time.Hour))
	student.SessionMarker = &marker
	store := newFakeStore(student)
	verifier := newFakeVerifier(map[string]string{"amira@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	_, err := issuer.Authenticate(context.Background(), "amira@example.com", "wrong-secret")
	if !errors.Is(err, models.ErrSessionConflict) {
		t.Fatalf("err = %v, want ErrSessionConflict", err)
	}
	if verifier.verifyCalls != 0 {
		t.Fatal("conflict must be reported before the secret is verified")
	}
}

func TestAuthenticateAdminSkipsMarker(t *testing.T) {
	admin := newAdmin("root@example.com")
	store := newFakeStore(admin)
	verifier := newFakeVerifier(map[string]string{"root@example.com": "s3cret"})
	issuer := NewIssuer(store, verifier, nil)

	result, err := issuer.Authenticate(context.Background(), "root@example.com", "s3cret")
	if err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	if result.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want %q", result.Role, models.RoleAdmin)
	}
	if result.SessionMarker != "" {
		t.Fatal("admins must not receive a session marker")
	}
	if store.casCalls != 0 {
		t.Fatal("admin login must not touch the marker field")
	}
}

func TestAuthenticateAdminRepeatLogins(t *testing.T) {
	admin := newAdmin("root@example.com")
	store := newFakeStore(admin)
	verifier := newFakeVerifier(map[string]string{"root@example.com": "s3cret"})
	issuer := NewIssuer(store, verifier, nil)

	for i := 0; i < 3; i++ {
		if _, err := issuer.Authenticate(context.Background(), "root@example.com", "s3cret"); err != nil {
			t.Fatalf("admin login %d: %v", i+1, err)
		}
	}
}

func TestAuthenticateRetriesLostCAS(t *testing.T) {
	student := newStudent("amira@example.com", nil, time.Now().Add(24*time.Hour))
	store := newFakeStore(student)
	// First CAS is denied but the racing login rolls back (logged out again)
	// before the retry, so the second attempt wins.
	store.casDenies = 1
	verifier := newFakeVerifier(map[string]string{"amira@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	result, err := issuer.Authenticate(context.Background(), "amira@example.com", "pa55word")
	if err != nil {
		t.Fatalf("authenticate after lost race: %v", err)
	}
	if result.SessionMarker == "" {
		t.Fatal("expected a marker from the retried CAS")
	}
	if store.casCalls != 2 {
		t.Fatalf("cas calls = %d, want 2", store.casCalls)
	}
}

func TestAuthenticateConflictAfterLostRace(t *testing.T) {
	student := newStudent("amira@example.com", nil, time.Now().Add(24*time.Hour))
	store := newFakeStore(student)
	store.casDenies = 1
	store.afterDeny = func(acc *models.Account) {
		winner := "winner-marker"
		acc.SessionMarker = &winner
	}
	verifier := newFakeVerifier(map[string]string{"amira@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	_, err := issuer.Authenticate(context.Background(), "amira@example.com", "pa55word")
	if !errors.Is(err, models.ErrSessionConflict) {
		t.Fatalf("err = %v, want ErrSessionConflict", err)
	}
	if verifier.endedCount() != 1 {
		t.Fatal("the issued proof must be ended when the login loses the race")
	}
}

func TestAuthenticateDegradedOnStoreError(t *testing.T) {
	student := newStudent("amira@example.com", nil, time.Now().Add(24*time.Hour))
	store := newFakeStore(student)
	store.casErr = models.ErrDatabaseUpdate
	verifier := newFakeVerifier(map[string]string{"amira@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)

	result, err := issuer.Authenticate(context.Background(), "amira@example.com", "pa55word")
	if err != nil {
		t.Fatalf("degraded login must still succeed, got %v", err)
	}
	if !result.Degraded {
		t.Fatal("expected the degraded flag")
	}
	if result.SessionMarker != "" {
		t.Fatal("degraded login must omit the marker")
	}
	if result.Proof == "" {
		t.Fatal("degraded login still carries a proof")
	}
}

func TestSingleSessionExclusion(t *testing.T) {
	student := newStudent("amira@example.com", nil, time.Now().Add(24*time.Hour))
	store := newFakeStore(student)
	verifier := newFakeVerifier(map[string]string{"amira@example.com": "pa55word"})
	issuer := NewIssuer(store, verifier, nil)
	revocation := NewRevocationController(store, verifier, nil)

	// Device A logs in.
	resultA, err := issuer.Authenticate(context.Background(), "amira@example.com", "pa55word")
	if err != nil {
		t.Fatalf("device A login: %v", err)
	}

	// Device B with the correct secret is excluded while A holds the marker.
	_, err = issuer.Authenticate(context.Background(), "amira@example.com", "pa55word")
	if !errors.Is(err, models.ErrSessionConflict) {
		t.Fatalf("device B err = %v, want ErrSessionConflict", err)
	}

	// A logs out; B can now log in with the same secret.
	_, claimsA, err := verifier.IssueProof(context.Background(), student)
	if err != nil {
		t.Fatalf("issue proof: %v", err)
	}
	if err := revocation.Logout(context.Background(), claimsA); err != nil {
		t.Fatalf("device A logout: %v", err)
	}

	resultB, err := issuer.Authenticate(context.Background(), "amira@example.com", "pa55word")
	if err != nil {
		t.Fatalf("device B login after logout: %v", err)
	}
	if resultB.SessionMarker == "" || resultB.SessionMarker == resultA.SessionMarker {
		t.Fatal("device B must receive a fresh marker")
	}
}
