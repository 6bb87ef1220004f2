package transport

import (
	"net/http"

	"markethub/internal/middleware"
	"markethub/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BusinessHandler handles HTTP requests for the business entity
type BusinessHandler struct {
	businessService service.BusinessService
	logger          *zap.Logger
}

// NewBusinessHandler creates a new BusinessHandler
func NewBusinessHandler(businessService service.BusinessService, logger *zap.Logger) *BusinessHandler {
	return &BusinessHandler{
		businessService: businessService,
		logger:          logger,
	}
}

// RegisterRoutes registers all business routes
func (h *BusinessHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/business/me", h.Me)
	})
}

// Me returns the business the authenticated user belongs to
func (h *BusinessHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	business, err := h.businessService.GetMine(r.Context(), actor)
	if err != nil {
		h.logger.Debug("Business lookup failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, business)
}
