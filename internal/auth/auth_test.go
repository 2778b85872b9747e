package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPasswordCost("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	identity := model.Identity{Identifier: "nurse1@example.com", Role: model.RoleNurse, DisplayName: "Nurse Nancy"}
	token, err := NewSessionToken("secret", "issuer", time.Minute, "sid-1", identity)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseSessionToken("secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.SessionID != "sid-1" || claims.UserID != identity.Identifier || claims.Role != model.RoleNurse || claims.Name != "Nurse Nancy" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := ParseSessionToken("other-secret", "issuer", token); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if _, err := ParseSessionToken("secret", "other-issuer", token); err == nil {
		t.Fatalf("expected issuer mismatch")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := NewSessionToken("secret", "issuer", -time.Minute, "sid-1", model.Identity{Identifier: "x", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseSessionToken("secret", "issuer", token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	directory, err := NewStaticDirectoryWithCost(DemoAccounts(), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("directory error: %v", err)
	}
	verifier, err := NewVerifierWithCost(directory, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("verifier error: %v", err)
	}
	return verifier
}

func TestVerifyDoctorLogin(t *testing.T) {
	verifier := newTestVerifier(t)
	identity, err := verifier.Verify(context.Background(), "doctor1@example.com", "doctorpass")
	if err != nil {
		t.Fatalf("expected doctor login, got %v", err)
	}
	if identity.Role != model.RoleDoctor || identity.DisplayName != "Dr. John Doe" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestVerifyRejectsWithoutDistinction(t *testing.T) {
	verifier := newTestVerifier(t)
	cases := []struct {
		name       string
		identifier string
		secret     string
	}{
		{"wrong secret", "doctor1@example.com", "nope"},
		{"unknown identifier", "ghost@example.com", "doctorpass"},
		{"empty identifier", "", "doctorpass"},
		{"empty secret", "doctor1@example.com", ""},
		{"case differs", "Doctor1@example.com", "doctorpass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), tc.identifier, tc.secret)
			if !errors.Is(err, ErrCredentialRejected) {
				t.Fatalf("expected ErrCredentialRejected, got %v", err)
			}
		})
	}
}

type failingDirectory struct{}

func (failingDirectory) LookupUser(context.Context, string) (model.User, error) {
	return model.User{}, errors.New("connection refused")
}

func TestVerifyPropagatesStoreFailure(t *testing.T) {
	verifier, err := NewVerifierWithCost(failingDirectory{}, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("verifier error: %v", err)
	}
	_, err = verifier.Verify(context.Background(), "doctor1@example.com", "doctorpass")
	if err == nil || errors.Is(err, ErrCredentialRejected) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}

func TestStaticDirectoryRejectsDuplicates(t *testing.T) {
	accounts := []Account{
		{Identifier: "a@example.com", Password: "x", Role: model.RoleAdmin},
		{Identifier: "a@example.com", Password: "y", Role: model.RoleAdmin},
	}
	if _, err := NewStaticDirectoryWithCost(accounts, bcrypt.MinCost); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := NewStaticDirectoryWithCost([]Account{{Identifier: "b", Password: "x", Role: "root"}}, bcrypt.MinCost); err == nil {
		t.Fatalf("expected invalid role error")
	}
}

func TestVerifierHashesDummyUpFront(t *testing.T) {
	verifier := newTestVerifier(t)
	cost, err := bcrypt.Cost([]byte(verifier.dummyHash))
	if err != nil {
		t.Fatalf("dummy hash is not a bcrypt hash: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Fatalf("expected dummy cost %d, got %d", bcrypt.MinCost, cost)
	}

	if _, err := NewVerifierWithCost(&StaticDirectory{}, bcrypt.MaxCost+1); err == nil {
		t.Fatalf("expected error when the dummy secret cannot be hashed")
	}
}
