package model

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUserNotFound = errors.New("user not found")

type Role string

const (
	RoleDoctor    Role = "doctor"
	RolePatient   Role = "patient"
	RoleNurse     Role = "nurse"
	RoleAdmin     Role = "admin"
	RoleFrontdesk Role = "frontdesk"
)

var Roles = []Role{RoleDoctor, RolePatient, RoleNurse, RoleAdmin, RoleFrontdesk}

func ParseRole(value string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(value)))
	for _, known := range Roles {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", value)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Identity is the authenticated principal held by a session. It is a value
// type; replacing it means setting a new one.
type Identity struct {
	Identifier  string `json:"identifier"`
	Role        Role   `json:"role"`
	DisplayName string `json:"name"`
}

type User struct {
	Identifier   string
	PasswordHash string
	Role         Role
	DisplayName  string
}

func (u User) Identity() Identity {
	return Identity{
		Identifier:  u.Identifier,
		Role:        u.Role,
		DisplayName: u.DisplayName,
	}
}
