// Package authz decides whether a caller may hit a configured endpoint.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jokeworks/joker-api/internal/models"
	"github.com/jokeworks/joker-api/internal/store"
)

// Deny reasons surfaced to the caller and written into the audit row.
const (
	ReasonAuthenticationAbsent = "authentication required"
	ReasonRoleInsufficient     = "insufficient role"
	ReasonUnknownUser          = "unknown user"
)

// Decision is the gate's verdict. Reason is set only on denial.
type Decision struct {
	Allowed bool
	Reason  string
	// AuthenticationAbsent distinguishes "no identity" from "wrong role" so
	// handlers can map 401 vs 403.
	AuthenticationAbsent bool
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string, absent bool) Decision {
	return Decision{Reason: reason, AuthenticationAbsent: absent}
}

type Gate struct {
	store *store.Store
}

func NewGate(st *store.Store) *Gate {
	return &Gate{store: st}
}

// Authorize applies the access policy: GET is open to anonymous callers and
// up, POST/PUT require at least API_USER, and the administrative namespace
// additionally requires SYSTEM_ADMIN or DATABASE_MANAGER. Roles are read
// fresh from the store on every call; caching them across requests would
// reintroduce the stale-permission bug this gate exists to avoid.
func (g *Gate) Authorize(ctx context.Context, userID *uuid.UUID, ep *models.APIEndpoint) (Decision, error) {
	var roles []models.Role
	if userID != nil {
		var err error
		roles, err = g.store.GetUserRoles(ctx, *userID)
		if errors.Is(err, store.ErrUserNotFound) {
			return deny(ReasonUnknownUser, false), nil
		}
		if err != nil {
			return Decision{}, fmt.Errorf("role lookup failed: %w", err)
		}
	}

	if ep.AdminOnly() {
		if userID == nil {
			return deny(ReasonAuthenticationAbsent, true), nil
		}
		if !holdsAny(roles, models.RoleSystemAdmin, models.RoleDatabaseManager) {
			return deny(ReasonRoleInsufficient, false), nil
		}
	}

	switch ep.Method {
	case models.MethodGet:
		return allow(), nil
	case models.MethodPost, models.MethodPut:
		if userID == nil {
			return deny(ReasonAuthenticationAbsent, true), nil
		}
		if !satisfies(roles, models.RoleAPIUser) {
			return deny(ReasonRoleInsufficient, false), nil
		}
		return allow(), nil
	}
	return deny(fmt.Sprintf("method %s not permitted", ep.Method), false), nil
}

// satisfies reports whether any held role meets the required tier, honoring
// supersedence (admin tiers cover API_USER).
func satisfies(held []models.Role, required models.Role) bool {
	for _, r := range held {
		if r.Supersedes(required) {
			return true
		}
	}
	return false
}

func holdsAny(held []models.Role, wanted ...models.Role) bool {
	for _, r := range held {
		for _, w := range wanted {
			if r == w {
				return true
			}
		}
	}
	return false
}
