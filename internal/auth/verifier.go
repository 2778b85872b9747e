package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

// ErrCredentialRejected covers both an unknown identifier and a wrong secret.
var ErrCredentialRejected = errors.New("credential rejected")

const RejectedMessage = "Invalid email or password."

type UserDirectory interface {
	LookupUser(ctx context.Context, identifier string) (model.User, error)
}

type Verifier struct {
	users UserDirectory
	// compared against when the identifier is unknown
	dummyHash string
}

func NewVerifier(users UserDirectory) (*Verifier, error) {
	return NewVerifierWithCost(users, bcrypt.DefaultCost)
}

// NewVerifierWithCost hashes the dummy secret at cost, which should match
// the cost of the stored hashes.
func NewVerifierWithCost(users UserDirectory, cost int) (*Verifier, error) {
	hash, err := hashPasswordCost("healthdesk-dummy-secret", cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy secret: %w", err)
	}
	return &Verifier{users: users, dummyHash: hash}, nil
}

func (v *Verifier) Verify(ctx context.Context, identifier, secret string) (model.Identity, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || secret == "" {
		return model.Identity{}, ErrCredentialRejected
	}

	user, err := v.users.LookupUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			// burn the same bcrypt work as a real comparison
			_ = CheckPassword(v.dummyHash, secret)
			return model.Identity{}, ErrCredentialRejected
		}
		return model.Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, secret); err != nil {
		return model.Identity{}, ErrCredentialRejected
	}
	if !user.Role.Valid() {
		return model.Identity{}, fmt.Errorf("user %s has invalid role %q", user.Identifier, user.Role)
	}
	return user.Identity(), nil
}
