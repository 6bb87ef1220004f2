package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"markethub/internal/authz"
	"markethub/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	UserRoleKey   contextKey = "user_role"
	BusinessIDKey contextKey = "business_id"
)

// AuthMiddleware validates JWT tokens and extracts the actor claims into the
// request context. business_id is optional in the token: users not yet
// assigned to a business authenticate fine and get denied later, by policy,
// with the unassigned reason.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := parts[1]

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					respondWithError(w, http.StatusUnauthorized, "token expired")
				} else {
					respondWithError(w, http.StatusUnauthorized, "invalid token")
				}
				return
			}

			if !token.Valid {
				logger.Debug("Invalid token")
				respondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logger.Error("Failed to extract claims from token")
				respondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok {
				logger.Error("Missing user_id in token claims")
				respondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			role, ok := claims["role"].(string)
			if !ok {
				logger.Error("Missing role in token claims")
				respondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, UserRoleKey, role)

			// business_id is absent for unassigned users
			businessID, _ := claims["business_id"].(string)
			if businessID != "" {
				ctx = context.WithValue(ctx, BusinessIDKey, businessID)
			}

			annotateIdentity(ctx, userID, businessID)

			logger.Debug("User authenticated",
				zap.String("user_id", userID),
				zap.String("role", role),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}

// GetBusinessID extracts the business ID from request context. Returns false
// for unassigned users.
func GetBusinessID(ctx context.Context) (string, bool) {
	businessID, ok := ctx.Value(BusinessIDKey).(string)
	return businessID, ok
}

// GetActor assembles the authenticated actor from the context claims. The
// second return is false when the request is unauthenticated or the claims
// are malformed.
func GetActor(ctx context.Context) (authz.Actor, bool) {
	userIDStr, ok := GetUserID(ctx)
	if !ok {
		return authz.Actor{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return authz.Actor{}, false
	}

	roleStr, ok := GetUserRole(ctx)
	if !ok {
		return authz.Actor{}, false
	}
	role := domain.Role(roleStr)
	if !role.Valid() {
		return authz.Actor{}, false
	}

	actor := authz.Actor{UserID: userID, Role: role}

	if businessIDStr, ok := GetBusinessID(ctx); ok {
		businessID, err := uuid.Parse(businessIDStr)
		if err != nil {
			return authz.Actor{}, false
		}
		actor.BusinessID = &businessID
	}

	return actor, true
}
