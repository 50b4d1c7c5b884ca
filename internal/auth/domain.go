package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user account.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the verified subject of a bearer credential.
type Identity struct {
	Subject   uuid.UUID
	Token     string
	ExpiresAt time.Time
}

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrInvalidToken indicates a missing, malformed or expired bearer token.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrUserNotFound indicates no account matches the lookup.
	ErrUserNotFound = errors.New("auth: user not found")
)
