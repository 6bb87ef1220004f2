package transport

import (
	"net/http"
	"strconv"

	"markethub/internal/domain"
	"markethub/internal/middleware"
	"markethub/internal/repository"
	"markethub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProductRequest represents the payload for creating a product
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// UpdateProductRequest represents the payload for updating a product. A
// status value is a transition request, validated against the workflow.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Status      *string  `json:"status" validate:"omitempty,oneof=draft pending_approval approved"`
}

// UnpublishRequest selects where an approved product goes when unpublished
type UnpublishRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=draft pending_approval"`
}

// BulkApproveRequest carries the product IDs for a bulk approval
type BulkApproveRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// ProductListResponse is the paginated product listing envelope
type ProductListResponse struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// Public catalog, no authentication
		r.Get("/public", h.ListPublic)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.ListInternal)
			r.Post("/", h.Create)
			r.Post("/bulk-approve", h.BulkApprove)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/submit", h.Submit)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/reject", h.Reject)
			r.Post("/{id}/unpublish", h.Unpublish)
			r.Post("/{id}/restore", h.Restore)
		})
	})
}

// parseProductFilter reads the search/sort/page query parameters. These are
// layered on top of the scoped result set by the repository, never before.
func parseProductFilter(r *http.Request, allowStatus bool) repository.ProductFilter {
	q := r.URL.Query()

	filter := repository.ProductFilter{
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: repository.SortOrder(q.Get("sort_order")),
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if pageSize, err := strconv.Atoi(q.Get("page_size")); err == nil {
		filter.PageSize = pageSize
	}

	if allowStatus {
		if statusStr := q.Get("status"); statusStr != "" {
			status := domain.ProductStatus(statusStr)
			if status.Valid() {
				filter.Status = &status
			}
		}
	}

	return filter
}

// ListPublic serves the anonymous catalog of approved products.
func (h *ProductHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	filter := parseProductFilter(r, false)

	products, total, err := h.productService.ListPublic(r.Context(), filter)
	if err != nil {
		h.logger.Error("Public product listing failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, listResponse(products, total, filter))
}

// ListInternal serves the business-scoped catalog, every status included.
func (h *ProductHandler) ListInternal(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	filter := parseProductFilter(r, true)

	products, total, err := h.productService.ListInternal(r.Context(), actor, filter)
	if err != nil {
		h.logger.Debug("Internal product listing failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, listResponse(products, total, filter))
}

func listResponse(products []*domain.Product, total int, filter repository.ProductFilter) ProductListResponse {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 10
	}
	return ProductListResponse{
		Products: products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Create(r.Context(), actor, service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		h.logger.Debug("Product creation failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("created_by", actor.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Get returns one product from the actor's business
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.productService.Get(r.Context(), actor, id)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update handles field changes and status transition requests
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	}
	if req.Status != nil {
		status := domain.ProductStatus(*req.Status)
		input.Status = &status
	}

	product, err := h.productService.Update(r.Context(), actor, id, input)
	if err != nil {
		h.logger.Debug("Product update failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete soft-deletes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := h.productService.Delete(r.Context(), actor, id); err != nil {
		h.logger.Debug("Product deletion failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// transitionHandler wraps the one-product workflow actions that take no body
func (h *ProductHandler) transitionHandler(w http.ResponseWriter, r *http.Request, do func(uuid.UUID) (*domain.Product, error)) {
	id, ok := parseIDParam(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := do(id)
	if err != nil {
		h.logger.Debug("Product transition failed",
			zap.String("product_id", id.String()),
			zap.Error(err),
		)
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Submit moves a draft into review
func (h *ProductHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.transitionHandler(w, r, func(id uuid.UUID) (*domain.Product, error) {
		return h.productService.Submit(r.Context(), actor, id)
	})
}

// Approve is the dedicated approval action
func (h *ProductHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.transitionHandler(w, r, func(id uuid.UUID) (*domain.Product, error) {
		return h.productService.Approve(r.Context(), actor, id)
	})
}

// Reject sends a pending product back to draft
func (h *ProductHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.transitionHandler(w, r, func(id uuid.UUID) (*domain.Product, error) {
		return h.productService.Reject(r.Context(), actor, id)
	})
}

// Unpublish takes an approved product out of the public catalog
func (h *ProductHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UnpublishRequest
	// Body is optional; default target is draft
	_ = middleware.DecodeAndValidate(r, &req)
	to := domain.StatusDraft
	if req.Status != "" {
		to = domain.ProductStatus(req.Status)
	}

	h.transitionHandler(w, r, func(id uuid.UUID) (*domain.Product, error) {
		return h.productService.Unpublish(r.Context(), actor, id, to)
	})
}

// Restore clears the soft-delete flag on a product
func (h *ProductHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.transitionHandler(w, r, func(id uuid.UUID) (*domain.Product, error) {
		return h.productService.Restore(r.Context(), actor, id)
	})
}

// BulkApprove approves a batch of products, reporting per-id outcomes
func (h *ProductHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BulkApproveRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID: "+raw)
			return
		}
		ids = append(ids, id)
	}

	results := h.productService.BulkApprove(r.Context(), actor, ids)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
