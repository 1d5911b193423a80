package domain

import (
	"errors"
	"slices"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrRedemptionUnavailable = errors.New("token redemption unavailable")
)

// Identity is what a handoff token asserts once redeemed.
type Identity struct {
	Username    string
	DisplayName string
	Roles       []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// User is a directory entry. PasswordHash is a bcrypt hash.
type User struct {
	Identity
	PasswordHash string
}
