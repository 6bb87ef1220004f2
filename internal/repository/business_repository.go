package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"markethub/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrBusinessNotFound      = errors.New("business not found")
	ErrBusinessAlreadyExists = errors.New("business with this name already exists")
)

// BusinessRepository defines the interface for business data access
type BusinessRepository interface {
	Create(ctx context.Context, business *domain.Business) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Business, error)
	FindByName(ctx context.Context, name string) (*domain.Business, error)
	CountDependents(ctx context.Context, id uuid.UUID) (users int, products int, err error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type businessRepository struct {
	db *sql.DB
}

// NewBusinessRepository creates a new instance of BusinessRepository
func NewBusinessRepository(db *sql.DB) BusinessRepository {
	return &businessRepository{db: db}
}

// Create inserts a new business into the database using parameterized queries
func (r *businessRepository) Create(ctx context.Context, business *domain.Business) error {
	query := `
		INSERT INTO businesses (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		business.ID,
		business.Name,
		business.Description,
		business.CreatedAt,
		business.UpdatedAt,
	)

	if err != nil {
		// Unique constraint violation on name
		if strings.Contains(err.Error(), "businesses_name_key") {
			return ErrBusinessAlreadyExists
		}
		return fmt.Errorf("failed to create business: %w", err)
	}

	return nil
}

// FindByID retrieves a business by ID using parameterized queries
func (r *businessRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`

	business := &domain.Business{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&business.ID,
		&business.Name,
		&business.Description,
		&business.CreatedAt,
		&business.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to find business by ID: %w", err)
	}

	return business, nil
}

// FindByName retrieves a business by its unique name
func (r *businessRepository) FindByName(ctx context.Context, name string) (*domain.Business, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM businesses
		WHERE name = $1
	`

	business := &domain.Business{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&business.ID,
		&business.Name,
		&business.Description,
		&business.CreatedAt,
		&business.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to find business by name: %w", err)
	}

	return business, nil
}

// CountDependents returns how many users and products still reference the
// business. Deletion is blocked at the service layer while either is nonzero.
func (r *businessRepository) CountDependents(ctx context.Context, id uuid.UUID) (int, int, error) {
	var users, products int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE business_id = $1`, id).Scan(&users)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count business users: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE business_id = $1`, id).Scan(&products)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count business products: %w", err)
	}

	return users, products, nil
}

// Delete removes a business. The schema's RESTRICT foreign keys back up the
// service-level dependents check.
func (r *businessRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM businesses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete business: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrBusinessNotFound
	}

	return nil
}
