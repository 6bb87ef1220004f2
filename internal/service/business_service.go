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

// BusinessService covers the tenant entity itself. Businesses are created by
// the administrative bootstrap, not through the public API surface.
type BusinessService interface {
	Create(ctx context.Context, name, description string) (*domain.Business, error)
	GetMine(ctx context.Context, actor authz.Actor) (*domain.Business, error)
	// Delete is blocked while users or products still reference the business.
	Delete(ctx context.Context, id uuid.UUID) error
}

type businessService struct {
	businessRepo repository.BusinessRepository
}

// NewBusinessService creates a new instance of BusinessService
func NewBusinessService(businessRepo repository.BusinessRepository) BusinessService {
	return &businessService{businessRepo: businessRepo}
}

// Create inserts a new business with a unique name.
func (s *businessService) Create(ctx context.Context, name, description string) (*domain.Business, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("name", "is required")
	}

	now := time.Now()
	business := &domain.Business{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.businessRepo.Create(ctx, business); err != nil {
		if err == repository.ErrBusinessAlreadyExists {
			return nil, apperr.Validation("name", "a business with this name already exists")
		}
		return nil, fmt.Errorf("failed to create business: %w", err)
	}

	return business, nil
}

// GetMine returns the actor's own business.
func (s *businessService) GetMine(ctx context.Context, actor authz.Actor) (*domain.Business, error) {
	if d := authz.Decide(actor, authz.ActionViewBusiness); !d.Allowed {
		return nil, d.Err("you are not assigned to any business")
	}

	business, err := s.businessRepo.FindByID(ctx, *actor.BusinessID)
	if err != nil {
		if err == repository.ErrBusinessNotFound {
			return nil, apperr.NotFound("business")
		}
		return nil, fmt.Errorf("failed to load business: %w", err)
	}
	return business, nil
}

// Delete removes a business only when nothing references it anymore.
func (s *businessService) Delete(ctx context.Context, id uuid.UUID) error {
	users, products, err := s.businessRepo.CountDependents(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count dependents: %w", err)
	}
	if users > 0 || products > 0 {
		return apperr.Conflict(apperr.CodeHasDependents,
			fmt.Sprintf("business still has %d users and %d products", users, products))
	}

	if err := s.businessRepo.Delete(ctx, id); err != nil {
		if err == repository.ErrBusinessNotFound {
			return apperr.NotFound("business")
		}
		return fmt.Errorf("failed to delete business: %w", err)
	}
	return nil
}
