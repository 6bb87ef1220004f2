package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"markethub/internal/apperr"
	"markethub/internal/authz"
	"markethub/internal/domain"
	"markethub/internal/repository"

	"github.com/google/uuid"
)

// CreateProductInput carries the caller-supplied fields for a new product.
// Status, business, and creator are stamped by the service, never taken from
// the request.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
}

// UpdateProductInput carries optional field changes. A non-nil Status is a
// transition request and is validated against the status machine; it is
// never silently dropped.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Status      *domain.ProductStatus
}

// BulkApproveResult reports the outcome for one product of a bulk approval.
type BulkApproveResult struct {
	ID      uuid.UUID       `json:"id"`
	Ok      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Product *domain.Product `json:"product,omitempty"`
}

// ProductService is the product lifecycle manager: it wraps every store call
// with policy checks and enforces the status state machine.
type ProductService interface {
	Create(ctx context.Context, actor authz.Actor, input CreateProductInput) (*domain.Product, error)
	Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	Submit(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error)
	Approve(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error)
	Reject(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error)
	Unpublish(ctx context.Context, actor authz.Actor, id uuid.UUID, to domain.ProductStatus) (*domain.Product, error)
	Restore(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error)
	BulkApprove(ctx context.Context, actor authz.Actor, ids []uuid.UUID) []BulkApproveResult
	ListInternal(ctx context.Context, actor authz.Actor, filter repository.ProductFilter) ([]*domain.Product, int, error)
	ListPublic(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	businessRepo repository.BusinessRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, businessRepo repository.BusinessRepository) ProductService {
	return &productService{
		productRepo:  productRepo,
		businessRepo: businessRepo,
	}
}

func validateProductFields(name string, price float64) error {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "is required"
	}
	if price < 0 {
		fields["price"] = "must not be negative"
	}
	if len(fields) > 0 {
		return &apperr.ValidationError{Fields: fields}
	}
	return nil
}

// Create stamps status, business, and creator from the actor and persists
// the new product. The business existence check keeps orphaned business_id
// values out of the store.
func (s *productService) Create(ctx context.Context, actor authz.Actor, input CreateProductInput) (*domain.Product, error) {
	if d := authz.Decide(actor, authz.ActionCreateProduct); !d.Allowed {
		return nil, d.Err("you are not allowed to create products")
	}

	if err := validateProductFields(input.Name, input.Price); err != nil {
		return nil, err
	}

	if _, err := s.businessRepo.FindByID(ctx, *actor.BusinessID); err != nil {
		if err == repository.ErrBusinessNotFound {
			return nil, apperr.Validation("business_id", "business does not exist")
		}
		return nil, fmt.Errorf("failed to verify business: %w", err)
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Status:      domain.StatusDraft,
		BusinessID:  *actor.BusinessID,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// load fetches the product and runs the object-level policy check. Deleted
// products are absent for everyone.
func (s *productService) load(ctx context.Context, actor authz.Actor, id uuid.UUID, action authz.Action) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if product.IsDeleted && action != authz.ActionRestoreProduct {
		return nil, apperr.NotFound("product")
	}

	if d := authz.DecideProduct(actor, action, product); !d.Allowed {
		return nil, d.Err("you are not allowed to perform this action on this product")
	}

	return product, nil
}

// Get returns one product from the actor's business.
func (s *productService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error) {
	return s.load(ctx, actor, id, authz.ActionListInternalProducts)
}

// transition drives one edge of the status machine as a compare-and-swap at
// the store. viaApprove marks the dedicated approve action: approvers may
// set approved only through it.
func (s *productService) transition(ctx context.Context, actor authz.Actor, product *domain.Product, to domain.ProductStatus, viaApprove bool) (*domain.Product, error) {
	if !to.Valid() {
		return nil, apperr.Validation("status", "unknown status value")
	}

	from := product.Status
	if from == to {
		if to == domain.StatusApproved {
			return nil, apperr.AlreadyApproved()
		}
		return nil, apperr.Conflict(apperr.CodeAlreadyInTargetState,
			fmt.Sprintf("product is already %s", to))
	}

	edgeExists, roleAllowed := transitionAllowed(from, to, actor.Role)
	if !edgeExists {
		return nil, apperr.Conflict(apperr.CodeInvalidTransition,
			fmt.Sprintf("cannot change status from %s to %s", from, to))
	}
	if !roleAllowed {
		return nil, apperr.Deny(apperr.ReasonInsufficientRole,
			fmt.Sprintf("your role cannot change status from %s to %s", from, to))
	}

	// Only the dedicated approve action may set approved for approvers;
	// admins may also set it directly.
	if to == domain.StatusApproved && !viaApprove && actor.Role != domain.RoleAdmin {
		return nil, apperr.Deny(apperr.ReasonInsufficientRole,
			"only the approve action may set a product to approved")
	}

	// Editors drive the submit edge only on their own products.
	if actor.Role == domain.RoleEditor && product.CreatedBy != actor.UserID {
		return nil, apperr.Deny(apperr.ReasonNotOwner,
			"you can only submit your own products")
	}

	err := s.productRepo.UpdateStatus(ctx, product.ID, from, to, actor.UserID, time.Now())
	if err == repository.ErrProductStatusConflict {
		return nil, s.classifyStatusConflict(ctx, product.ID, to)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product status: %w", err)
	}

	updated, err := s.productRepo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return updated, nil
}

// classifyStatusConflict turns a lost compare-and-swap into the precise
// caller-facing error: concurrent approvals lose with AlreadyApproved, a
// deleted or vanished product is NotFound.
func (s *productService) classifyStatusConflict(ctx context.Context, id uuid.UUID, to domain.ProductStatus) error {
	current, err := s.productRepo.FindByID(ctx, id)
	if err != nil || current.IsDeleted {
		return apperr.NotFound("product")
	}
	if current.Status == to {
		if to == domain.StatusApproved {
			return apperr.AlreadyApproved()
		}
		return apperr.Conflict(apperr.CodeAlreadyInTargetState,
			fmt.Sprintf("product is already %s", to))
	}
	return apperr.Conflict(apperr.CodeInvalidTransition,
		"product status changed concurrently, retry from the current state")
}

// Update applies field changes and, when a status is supplied, validates the
// transition instead of dropping it.
func (s *productService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.load(ctx, actor, id, authz.ActionUpdateProduct)
	if err != nil {
		return nil, err
	}

	name := product.Name
	if input.Name != nil {
		name = *input.Name
	}
	price := product.Price
	if input.Price != nil {
		price = *input.Price
	}
	if err := validateProductFields(name, price); err != nil {
		return nil, err
	}

	// A status that differs from the current one is a transition request and
	// goes through the state machine; an echoed current status is a no-op.
	if input.Status != nil && *input.Status != product.Status {
		if _, err := s.transition(ctx, actor, product, *input.Status, false); err != nil {
			return nil, err
		}
	}

	product.Name = name
	if input.Description != nil {
		product.Description = *input.Description
	}
	product.Price = price
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		if err == repository.ErrProductNotFound {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	updated, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return updated, nil
}

// Delete soft-deletes a product. Deleting an already-deleted product is an
// error, not a no-op.
func (s *productService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	product, err := s.load(ctx, actor, id, authz.ActionDeleteProduct)
	if err != nil {
		return err
	}

	if err := s.productRepo.SoftDelete(ctx, product.ID, actor.UserID, time.Now()); err != nil {
		if err == repository.ErrProductNotFound {
			return apperr.NotFound("product")
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// Submit moves a draft into review.
func (s *productService) Submit(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error) {
	product, err := s.load(ctx, actor, id, authz.ActionUpdateProduct)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, product, domain.StatusPendingApproval, false)
}

// Approve is the dedicated approval action. Concurrent approvals of the same
// product resolve to exactly one success; every loser gets AlreadyApproved.
func (s *productService) Approve(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error) {
	product, err := s.load(ctx, actor, id, authz.ActionApproveProduct)
	if err != nil {
		return nil, err
	}
	if product.Status == domain.StatusApproved {
		return nil, apperr.AlreadyApproved()
	}
	return s.transition(ctx, actor, product, domain.StatusApproved, true)
}

// Reject sends a pending product back to draft.
func (s *productService) Reject(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error) {
	product, err := s.load(ctx, actor, id, authz.ActionSetProductStatus)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, product, domain.StatusDraft, false)
}

// Unpublish takes an approved product out of the public catalog, back to
// draft or to pending approval.
func (s *productService) Unpublish(ctx context.Context, actor authz.Actor, id uuid.UUID, to domain.ProductStatus) (*domain.Product, error) {
	if to != domain.StatusDraft && to != domain.StatusPendingApproval {
		return nil, apperr.Validation("status", "unpublish target must be draft or pending_approval")
	}
	product, err := s.load(ctx, actor, id, authz.ActionSetProductStatus)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.StatusApproved {
		return nil, apperr.Conflict(apperr.CodeInvalidTransition, "only approved products can be unpublished")
	}
	return s.transition(ctx, actor, product, to, false)
}

// Restore clears the soft-delete flag on a deleted product.
func (s *productService) Restore(ctx context.Context, actor authz.Actor, id uuid.UUID) (*domain.Product, error) {
	product, err := s.load(ctx, actor, id, authz.ActionRestoreProduct)
	if err != nil {
		return nil, err
	}
	if !product.IsDeleted {
		return nil, apperr.Conflict(apperr.CodeAlreadyInTargetState, "product is not deleted")
	}

	if err := s.productRepo.Restore(ctx, product.ID); err != nil {
		if err == repository.ErrProductNotFound {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("failed to restore product: %w", err)
	}

	restored, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload product: %w", err)
	}
	return restored, nil
}

// BulkApprove approves each product independently and reports per-id
// outcomes; one failure does not abort the rest.
func (s *productService) BulkApprove(ctx context.Context, actor authz.Actor, ids []uuid.UUID) []BulkApproveResult {
	results := make([]BulkApproveResult, 0, len(ids))
	for _, id := range ids {
		product, err := s.Approve(ctx, actor, id)
		if err != nil {
			results = append(results, BulkApproveResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BulkApproveResult{ID: id, Ok: true, Product: product})
	}
	return results
}

// ListInternal returns the actor's business catalog, every status included.
func (s *productService) ListInternal(ctx context.Context, actor authz.Actor, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	if d := authz.Decide(actor, authz.ActionListInternalProducts); !d.Allowed {
		return nil, 0, d.Err("you are not allowed to list internal products")
	}
	return s.productRepo.ListByBusiness(ctx, *actor.BusinessID, filter)
}

// ListPublic returns the approved catalog across all businesses. No actor:
// the endpoint is anonymous and the approved filter applies regardless of
// caller identity.
func (s *productService) ListPublic(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	return s.productRepo.ListApproved(ctx, filter)
}
