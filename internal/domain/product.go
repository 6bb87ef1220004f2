package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductStatus is the closed set of states in the approval workflow.
type ProductStatus string

const (
	StatusDraft           ProductStatus = "draft"
	StatusPendingApproval ProductStatus = "pending_approval"
	StatusApproved        ProductStatus = "approved"
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved:
		return true
	}
	return false
}

// Product represents a marketplace product. BusinessID and CreatedBy are set
// at creation from the creating actor and never change afterwards. Deletion
// is a soft delete: the row stays for the audit trail but is excluded from
// every listing and treated as absent by reads.
type Product struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description string        `json:"description" db:"description"`
	Price       float64       `json:"price" db:"price"`
	Status      ProductStatus `json:"status" db:"status"`
	BusinessID  uuid.UUID     `json:"business_id" db:"business_id"`
	CreatedBy   uuid.UUID     `json:"created_by" db:"created_by"`
	ApprovedBy  *uuid.UUID    `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt  *time.Time    `json:"approved_at,omitempty" db:"approved_at"`
	IsDeleted   bool          `json:"-" db:"is_deleted"`
	DeletedAt   *time.Time    `json:"-" db:"deleted_at"`
	DeletedBy   *uuid.UUID    `json:"-" db:"deleted_by"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}
