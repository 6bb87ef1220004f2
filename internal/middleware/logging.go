package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type identityCtxKey struct{}

// requestIdentity is filled in by the auth middleware once the token is
// validated, so the request log can attribute the call to a principal even
// though logging wraps the handler chain from the outside.
type requestIdentity struct {
	userID     string
	businessID string
}

func annotateIdentity(ctx context.Context, userID, businessID string) {
	if identity, ok := ctx.Value(identityCtxKey{}).(*requestIdentity); ok {
		identity.userID = userID
		identity.businessID = businessID
	}
}

// LoggingMiddleware logs HTTP requests and responses
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Request ID comes from chi's middleware.RequestID
			requestID := middleware.GetReqID(r.Context())

			identity := &requestIdentity{}
			r = r.WithContext(context.WithValue(r.Context(), identityCtxKey{}, identity))

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}
			if identity.userID != "" {
				fields = append(fields, zap.String("user_id", identity.userID))
			}
			if identity.businessID != "" {
				fields = append(fields, zap.String("business_id", identity.businessID))
			}

			logger.Info("Request completed", fields...)
		})
	}
}
