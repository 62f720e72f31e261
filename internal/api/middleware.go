package api

import (
	"context"
	"net/http"
	"skrytka-plikow/internal/auth"
	"skrytka-plikow/internal/models"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey string

const userContextKey = contextKey("user")

const accessTokenCookie = "access_token"

// extractToken szuka tokenu najpierw w cookie (przeglądarka), a dopiero
// potem w nagłówku Authorization (klienci API). Kolejność jest istotna.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return strings.TrimPrefix(cookie.Value, "Bearer ")
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "Could not validate credentials", http.StatusUnauthorized)
}

// AuthMiddleware wpuszcza dalej tylko żądania z ważnym tokenem, którego
// podmiot istnieje w bazie i jest aktywny. Każda inna odpowiedź to ta sama
// ogólna odmowa, bez zdradzania, który krok zawiódł.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			unauthorized(w)
			return
		}

		claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
		if err != nil {
			unauthorized(w)
			return
		}

		user, err := s.store.GetUserByUsername(r.Context(), claims.Subject)
		if err != nil {
			s.logger.Error("Nie udało się pobrać użytkownika dla tokenu", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			unauthorized(w)
			return
		}

		if !user.IsActive {
			http.Error(w, "Inactive user", http.StatusForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware zakłada, że AuthMiddleware już zadziałał.
func (s *Server) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUserFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}

func (s *Server) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}
