package service

import (
	"markethub/internal/domain"
)

// transitionKey is one directed edge of the product status machine.
type transitionKey struct {
	From domain.ProductStatus
	To   domain.ProductStatus
}

// transitionRoles maps each permitted edge to the roles that may drive it.
// Editors appear only on the submit edge and, even there, only for products
// they created; that ownership constraint is enforced in the service, not
// in this table.
var transitionRoles = map[transitionKey][]domain.Role{
	{From: domain.StatusDraft, To: domain.StatusPendingApproval}:    {domain.RoleAdmin, domain.RoleEditor},
	{From: domain.StatusDraft, To: domain.StatusApproved}:           {domain.RoleAdmin},
	{From: domain.StatusPendingApproval, To: domain.StatusApproved}: {domain.RoleAdmin, domain.RoleApprover},
	{From: domain.StatusPendingApproval, To: domain.StatusDraft}:    {domain.RoleAdmin},
	{From: domain.StatusApproved, To: domain.StatusDraft}:           {domain.RoleAdmin},
	{From: domain.StatusApproved, To: domain.StatusPendingApproval}: {domain.RoleAdmin},
}

// transitionAllowed reports whether the edge exists and, if so, whether role
// may drive it.
func transitionAllowed(from, to domain.ProductStatus, role domain.Role) (edgeExists, roleAllowed bool) {
	roles, ok := transitionRoles[transitionKey{From: from, To: to}]
	if !ok {
		return false, false
	}
	for _, r := range roles {
		if r == role {
			return true, true
		}
	}
	return true, false
}
