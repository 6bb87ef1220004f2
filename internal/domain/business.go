package domain

import (
	"time"

	"github.com/google/uuid"
)

// Business is the tenant boundary. Users and products always belong to
// exactly one business.
type Business struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
