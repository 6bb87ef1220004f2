package service

import (
	"context"
	"sync"
	"time"

	"markethub/internal/domain"
	"markethub/internal/repository"

	"github.com/google/uuid"
)

// Mock repositories for testing

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := []*domain.User{}
	for _, user := range m.users {
		if user.BusinessID != nil && *user.BusinessID == businessID {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for username, existing := range m.users {
		if existing.ID == user.ID {
			m.users[username] = user
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for username, existing := range m.users {
		if existing.ID == id {
			delete(m.users, username)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	for _, refreshToken := range m.tokens {
		if refreshToken.UserID == userID {
			refreshToken.Revoked = true
		}
	}
	return nil
}

type mockBusinessRepository struct {
	mu         sync.Mutex
	businesses map[uuid.UUID]*domain.Business
}

func newMockBusinessRepository() *mockBusinessRepository {
	return &mockBusinessRepository{
		businesses: make(map[uuid.UUID]*domain.Business),
	}
}

func (m *mockBusinessRepository) Create(ctx context.Context, business *domain.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.businesses {
		if existing.Name == business.Name {
			return repository.ErrBusinessAlreadyExists
		}
	}
	m.businesses[business.ID] = business
	return nil
}

func (m *mockBusinessRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	business, exists := m.businesses[id]
	if !exists {
		return nil, repository.ErrBusinessNotFound
	}
	return business, nil
}

func (m *mockBusinessRepository) FindByName(ctx context.Context, name string) (*domain.Business, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, business := range m.businesses {
		if business.Name == name {
			return business, nil
		}
	}
	return nil, repository.ErrBusinessNotFound
}

func (m *mockBusinessRepository) CountDependents(ctx context.Context, id uuid.UUID) (int, int, error) {
	return 0, 0, nil
}

func (m *mockBusinessRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.businesses[id]; !exists {
		return repository.ErrBusinessNotFound
	}
	delete(m.businesses, id)
	return nil
}

// mockProductRepository mirrors the store's concurrency contract: UpdateStatus
// is a compare-and-swap under the lock, so racing transitions resolve to one
// winner exactly like the conditional UPDATE does.
type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
	}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, exists := m.products[product.ID]
	if !exists || existing.IsDeleted {
		return repository.ErrProductNotFound
	}
	existing.Name = product.Name
	existing.Description = product.Description
	existing.Price = product.Price
	existing.UpdatedAt = product.UpdatedAt
	return nil
}

func (m *mockProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ProductStatus, actorID uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists || product.IsDeleted || product.Status != from {
		return repository.ErrProductStatusConflict
	}
	product.Status = to
	if to == domain.StatusApproved {
		product.ApprovedBy = &actorID
		product.ApprovedAt = &now
	} else {
		product.ApprovedBy = nil
		product.ApprovedAt = nil
	}
	product.UpdatedAt = now
	return nil
}

func (m *mockProductRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedBy uuid.UUID, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists || product.IsDeleted {
		return repository.ErrProductNotFound
	}
	product.IsDeleted = true
	product.DeletedAt = &now
	product.DeletedBy = &deletedBy
	product.UpdatedAt = now
	return nil
}

func (m *mockProductRepository) Restore(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, exists := m.products[id]
	if !exists || !product.IsDeleted {
		return repository.ErrProductNotFound
	}
	product.IsDeleted = false
	product.DeletedAt = nil
	product.DeletedBy = nil
	return nil
}

func (m *mockProductRepository) ListByBusiness(ctx context.Context, businessID uuid.UUID, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := []*domain.Product{}
	for _, product := range m.products {
		if product.IsDeleted || product.BusinessID != businessID {
			continue
		}
		if filter.Status != nil && product.Status != *filter.Status {
			continue
		}
		copied := *product
		products = append(products, &copied)
	}
	return products, len(products), nil
}

func (m *mockProductRepository) ListApproved(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	products := []*domain.Product{}
	for _, product := range m.products {
		if product.IsDeleted || product.Status != domain.StatusApproved {
			continue
		}
		copied := *product
		products = append(products, &copied)
	}
	return products, len(products), nil
}
