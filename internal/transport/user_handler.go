package transport

import (
	"net/http"

	"markethub/internal/domain"
	"markethub/internal/middleware"
	"markethub/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserProfile represents user data returned by the API. The password hash
// never leaves the service layer.
type UserProfile struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	BusinessID *string `json:"business_id"`
	IsActive   bool    `json:"is_active"`
	DateJoined string  `json:"date_joined"`
}

func toUserProfile(user *domain.User) UserProfile {
	profile := UserProfile{
		ID:         user.ID.String(),
		Username:   user.Username,
		Email:      user.Email,
		Role:       string(user.Role),
		IsActive:   user.IsActive,
		DateJoined: user.DateJoined.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if user.BusinessID != nil {
		id := user.BusinessID.String()
		profile.BusinessID = &id
	}
	return profile
}

// CreateUserRequest represents the payload for creating a user in a business
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin editor approver viewer"`
	IsActive *bool  `json:"is_active"`
}

// UpdateUserRequest represents the payload for updating a managed user
type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin editor approver viewer"`
	IsActive *bool   `json:"is_active"`
}

// UserHandler handles HTTP requests for business user management
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers the user management routes. The route-level admin
// gate is coarse; the service policy re-checks the actor and adds tenancy.
func (h *UserHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/business/users", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func parseIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// List returns all users in the actor's business
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	users, err := h.userService.ListUsers(r.Context(), actor)
	if err != nil {
		h.logger.Debug("List users failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	profiles := make([]UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, toUserProfile(user))
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"users": profiles})
}

// Create adds a user to the actor's business
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	}
	if req.Role != "" {
		role := domain.Role(req.Role)
		input.Role = &role
	}

	user, err := h.userService.CreateUser(r.Context(), actor, input)
	if err != nil {
		h.logger.Debug("Create user failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	h.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("created_by", actor.UserID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, toUserProfile(user))
}

// Get returns one user in the actor's business
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	user, err := h.userService.GetUser(r.Context(), actor, id)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toUserProfile(user))
}

// Update changes a managed user's role, activation, email, or password
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req UpdateUserRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.UpdateUserInput{
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.userService.UpdateUser(r.Context(), actor, id, input)
	if err != nil {
		h.logger.Debug("Update user failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toUserProfile(user))
}

// Delete removes a user from the actor's business
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, ok := parseIDParam(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	if err := h.userService.DeleteUser(r.Context(), actor, id); err != nil {
		h.logger.Debug("Delete user failed", zap.Error(err))
		middleware.WriteAppError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
