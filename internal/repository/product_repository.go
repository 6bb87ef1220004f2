package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"markethub/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")

	// ErrProductStatusConflict means a conditional status update matched no
	// row: either the product is gone or its status changed underneath us.
	ErrProductStatusConflict = errors.New("product status changed concurrently")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter carries the search/sort/page parameters layered on top of an
// already-scoped candidate set. Scoping always happens first, in SQL.
type ProductFilter struct {
	Status    *domain.ProductStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder SortOrder
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	// FindByID returns the row even when soft-deleted; callers decide whether
	// a deleted product counts as absent.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	// UpdateStatus is a compare-and-swap: the row is updated only if its
	// current status equals from. Concurrent transitions on the same product
	// resolve to exactly one winner.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ProductStatus, actorID uuid.UUID, now time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID, now time.Time) error
	Restore(ctx context.Context, id uuid.UUID) error
	ListByBusiness(ctx context.Context, businessID uuid.UUID, filter ProductFilter) ([]*domain.Product, int, error)
	ListApproved(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, status, business_id, created_by,
	approved_by, approved_at, is_deleted, deleted_at, deleted_by, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Status,
		&product.BusinessID,
		&product.CreatedBy,
		&product.ApprovedBy,
		&product.ApprovedAt,
		&product.IsDeleted,
		&product.DeletedAt,
		&product.DeletedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, status, business_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Status,
		product.BusinessID,
		product.CreatedBy,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// Update persists name, description, and price. Status changes go through
// UpdateStatus so every transition carries its precondition.
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, updated_at = $5
		WHERE id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpdateStatus performs the conditional transition. Approval stamps
// approved_by/approved_at; any transition out of approved clears them.
func (r *productRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ProductStatus, actorID uuid.UUID, now time.Time) error {
	var approvedBy *uuid.UUID
	var approvedAt *time.Time
	if to == domain.StatusApproved {
		approvedBy = &actorID
		approvedAt = &now
	}

	query := `
		UPDATE products
		SET status = $3, approved_by = $4, approved_at = $5, updated_at = $6
		WHERE id = $1 AND status = $2 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id, from, to, approvedBy, approvedAt, now)
	if err != nil {
		return fmt.Errorf("failed to update product status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductStatusConflict
	}

	return nil
}

// SoftDelete marks a product deleted. The is_deleted = FALSE precondition
// makes a second delete of the same product an error, not a no-op.
func (r *productRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID, now time.Time) error {
	query := `
		UPDATE products
		SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2
		WHERE id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id, now, deletedBy)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Restore clears the soft-delete flag
func (r *productRepository) Restore(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE products
		SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL
		WHERE id = $1 AND is_deleted = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to restore product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ListByBusiness retrieves non-deleted products for one business with
// optional status filtering, search, sorting, and pagination. The business
// predicate is always applied before search/sort/page.
func (r *productRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID, filter ProductFilter) ([]*domain.Product, int, error) {
	where := []string{"business_id = $1", "is_deleted = FALSE"}
	args := []interface{}{businessID}
	argIndex := 2

	if filter.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	return r.list(ctx, where, args, argIndex, filter)
}

// ListApproved retrieves the public catalog: approved, non-deleted products
// across all businesses, regardless of caller identity.
func (r *productRepository) ListApproved(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	where := []string{"status = $1", "is_deleted = FALSE"}
	args := []interface{}{domain.StatusApproved}
	return r.list(ctx, where, args, 2, filter)
}

func (r *productRepository) list(ctx context.Context, where []string, args []interface{}, argIndex int, filter ProductFilter) ([]*domain.Product, int, error) {
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+search+"%")
		argIndex++
	}

	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"status":     true,
	}
	sortBy := filter.SortBy
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating products: %w", err)
	}

	return products, total, nil
}
