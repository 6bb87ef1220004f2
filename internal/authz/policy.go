package authz

import (
	"fmt"

	"markethub/internal/apperr"
	"markethub/internal/domain"

	"github.com/google/uuid"
)

// Action is a named capability an actor may hold.
type Action string

const (
	ActionCreateProduct        Action = "product:create"
	ActionUpdateProduct        Action = "product:update"
	ActionDeleteProduct        Action = "product:delete"
	ActionApproveProduct       Action = "product:approve"
	ActionSetProductStatus     Action = "product:set_status"
	ActionRestoreProduct       Action = "product:restore"
	ActionListInternalProducts Action = "product:list_internal"
	ActionListPublicProducts   Action = "product:list_public"
	ActionManageUsers          Action = "user:manage"
	ActionViewBusiness         Action = "business:view"
)

// Actor is the authenticated identity making a request, derived from token
// claims and threaded explicitly through every core call.
type Actor struct {
	UserID     uuid.UUID
	BusinessID *uuid.UUID
	Role       domain.Role
}

// Decision is the outcome of a policy check. Zero value is a denial.
type Decision struct {
	Allowed bool
	Reason  apperr.DenyReason
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny builds a denial with the given reason.
func Deny(reason apperr.DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into the typed error the service layer returns.
// Calling Err on an allowed decision is a programming error.
func (d Decision) Err(msg string) error {
	if d.Allowed {
		panic("authz: Err called on an allowed decision")
	}
	return apperr.Deny(d.Reason, msg)
}

// capabilities is the authoritative role matrix. Adding a role or action is
// a table edit, not a new code path.
var capabilities = map[Action][]domain.Role{
	ActionCreateProduct:        {domain.RoleAdmin, domain.RoleEditor},
	ActionUpdateProduct:        {domain.RoleAdmin, domain.RoleEditor},
	ActionDeleteProduct:        {domain.RoleAdmin, domain.RoleEditor},
	ActionApproveProduct:       {domain.RoleAdmin, domain.RoleApprover},
	ActionSetProductStatus:     {domain.RoleAdmin},
	ActionRestoreProduct:       {domain.RoleAdmin},
	ActionListInternalProducts: {domain.RoleAdmin, domain.RoleEditor, domain.RoleApprover},
	ActionListPublicProducts:   {domain.RoleAdmin, domain.RoleEditor, domain.RoleApprover, domain.RoleViewer},
	ActionManageUsers:          {domain.RoleAdmin},
	ActionViewBusiness:         {domain.RoleAdmin, domain.RoleEditor, domain.RoleApprover, domain.RoleViewer},
}

// ownerScoped marks the actions where editors are limited to resources they
// created. Ownership never overrides business isolation.
var ownerScoped = map[Action]bool{
	ActionUpdateProduct: true,
	ActionDeleteProduct: true,
}

// Decide answers whether the actor holds the capability for action. It covers
// role and business-assignment checks only; resource-level checks (tenancy,
// ownership) are DecideProduct's job.
func Decide(actor Actor, action Action) Decision {
	roles, ok := capabilities[action]
	if !ok {
		panic(fmt.Sprintf("authz: unknown action %q", action))
	}
	if !actor.Role.Valid() {
		panic(fmt.Sprintf("authz: unknown role %q", actor.Role))
	}

	// The public listing is open to everyone, assigned or not.
	if action == ActionListPublicProducts {
		return Allow
	}

	if actor.BusinessID == nil {
		return Deny(apperr.ReasonUnassigned)
	}

	for _, r := range roles {
		if r == actor.Role {
			return Allow
		}
	}
	return Deny(apperr.ReasonInsufficientRole)
}

// DecideProduct answers whether the actor may perform action on product.
// Check order is fixed: unassigned, then tenancy, then capability, then
// ownership. Cross-tenant access is denied regardless of role so that an
// admin of business A can never touch business B.
func DecideProduct(actor Actor, action Action, product *domain.Product) Decision {
	if action == ActionListPublicProducts {
		return Allow
	}
	if actor.BusinessID == nil {
		if !actor.Role.Valid() {
			panic(fmt.Sprintf("authz: unknown role %q", actor.Role))
		}
		return Deny(apperr.ReasonUnassigned)
	}
	if product.BusinessID != *actor.BusinessID {
		return Deny(apperr.ReasonCrossTenant)
	}

	if d := Decide(actor, action); !d.Allowed {
		return d
	}

	if ownerScoped[action] && actor.Role == domain.RoleEditor && product.CreatedBy != actor.UserID {
		return Deny(apperr.ReasonNotOwner)
	}
	return Allow
}

// SameBusiness reports whether the actor is assigned to businessID.
func SameBusiness(actor Actor, businessID uuid.UUID) bool {
	return actor.BusinessID != nil && *actor.BusinessID == businessID
}
