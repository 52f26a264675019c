package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/services"
	"github.com/vanbook/backend/internal/utils"
)

type contextKey string

// ContextKeyUser holds the authenticated *models.User.
const ContextKeyUser contextKey = "authUser"

// UserFromContext returns the authenticated user set by RequireAuth, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(ContextKeyUser).(*models.User)
	return user
}

// RequireAuth validates the bearer token, loads the user and stores it in the
// request context. Inactive and soft-deleted accounts are rejected.
func RequireAuth(jwtSvc services.JWTService, userRepo repositories.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing or malformed Authorization header", nil,
				)
				return
			}

			userID, err := jwtSvc.ValidateAccessToken(token)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired token", nil, err,
				)
				return
			}

			user, err := userRepo.GetByID(r.Context(), userID)
			if err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusInternalServerError, utils.ErrCodeInternal, "Failed to load account", nil, err,
				)
				return
			}
			if user == nil || !user.Active || user.DeletedAt != nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Account not found or inactive", nil,
				)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subtree to users carrying one of the given roles. It
// must run after RequireAuth.
func RequireRole(roles ...models.RoleType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				utils.RespondErrorWithCode(
					w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authentication required", nil,
				)
				return
			}
			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.RespondErrorWithCode(
				w, http.StatusForbidden, utils.ErrCodeAccessInvalid, "Insufficient permissions", nil,
			)
		})
	}
}
