package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

type Account struct {
	Identifier  string
	Password    string
	Role        model.Role
	DisplayName string
}

// DemoAccounts is the built-in account table used when no database is
// configured.
func DemoAccounts() []Account {
	return []Account{
		{Identifier: "doctor1@example.com", Password: "doctorpass", Role: model.RoleDoctor, DisplayName: "Dr. John Doe"},
		{Identifier: "patient1@example.com", Password: "patientpass", Role: model.RolePatient, DisplayName: "Alice Smith"},
		{Identifier: "nurse1@example.com", Password: "nursepass", Role: model.RoleNurse, DisplayName: "Nurse Nancy"},
		{Identifier: "admin1@example.com", Password: "adminpass", Role: model.RoleAdmin, DisplayName: "Admin Bob"},
		{Identifier: "frontdesk1@example.com", Password: "frontdeskpass", Role: model.RoleFrontdesk, DisplayName: "Frontdesk Charlie"},
	}
}

// StaticDirectory is an in-memory UserDirectory. Passwords are hashed once at
// construction so verification follows the same bcrypt path as the database.
type StaticDirectory struct {
	users map[string]model.User
}

func NewStaticDirectory(accounts []Account) (*StaticDirectory, error) {
	return NewStaticDirectoryWithCost(accounts, bcrypt.DefaultCost)
}

func NewStaticDirectoryWithCost(accounts []Account, cost int) (*StaticDirectory, error) {
	users := make(map[string]model.User, len(accounts))
	for _, account := range accounts {
		if !account.Role.Valid() {
			return nil, fmt.Errorf("account %s: invalid role %q", account.Identifier, account.Role)
		}
		if _, ok := users[account.Identifier]; ok {
			return nil, fmt.Errorf("duplicate account %s", account.Identifier)
		}
		hash, err := hashPasswordCost(account.Password, cost)
		if err != nil {
			return nil, err
		}
		users[account.Identifier] = model.User{
			Identifier:   account.Identifier,
			PasswordHash: hash,
			Role:         account.Role,
			DisplayName:  account.DisplayName,
		}
	}
	return &StaticDirectory{users: users}, nil
}

func (d *StaticDirectory) LookupUser(_ context.Context, identifier string) (model.User, error) {
	user, ok := d.users[identifier]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}
