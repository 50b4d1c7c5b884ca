package rbac

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of application roles stored on a profile.
type Role string

const (
	RoleAdmin            Role = "admin"
	RoleWarehouseManager Role = "warehouse_manager"
	RoleSupervisor       Role = "supervisor"
	RoleRequester        Role = "requester"
)

var (
	// ErrNotFound indicates that the requested profile does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrInactive indicates the profile exists but the account is disabled.
	ErrInactive = errors.New("rbac: account inactive")
	// ErrUnknownRole indicates a stored or submitted role outside the closed set.
	ErrUnknownRole = errors.New("rbac: unknown role")
)

// Roles returns every known role.
func Roles() []Role {
	return []Role{RoleAdmin, RoleWarehouseManager, RoleSupervisor, RoleRequester}
}

// ParseRole maps a raw role string onto the closed set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleWarehouseManager, "warehouse-manager":
		return RoleWarehouseManager, nil
	case RoleSupervisor:
		return RoleSupervisor, nil
	case RoleRequester:
		return RoleRequester, nil
	default:
		return "", ErrUnknownRole
	}
}

// IsValid reports whether r belongs to the closed set.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleWarehouseManager, RoleSupervisor, RoleRequester:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role manages stock on behalf of others.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleWarehouseManager:
		return true
	case RoleSupervisor, RoleRequester:
		return false
	default:
		return false
	}
}

// Profile is the stored role/activation record of a user.
type Profile struct {
	UserID    uuid.UUID
	FullName  string
	Role      Role
	IsActive  bool
	UpdatedAt time.Time
}

// Actor describes the authenticated caller as resolved from its profile.
type Actor struct {
	ID     uuid.UUID
	Role   Role
	Active bool
}

// ActorFromProfile converts a profile into an Actor.
func ActorFromProfile(p Profile) Actor {
	return Actor{ID: p.UserID, Role: p.Role, Active: p.IsActive}
}

// IsZero reports whether the actor is unset.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil
}
