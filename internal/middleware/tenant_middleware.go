package middleware

import (
	"net/http"

	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/tenant"
	"github.com/vanbook/backend/internal/utils"
)

// TenantHeader selects the tenant database for the request.
const TenantHeader = "X-Tenant-Code"

// ResolveTenant reads the tenant header, checks it against the registry and
// stores the code in the request context. Requests without the header run
// against the default tenant.
func ResolveTenant(registry *tenant.Registry[repositories.DB]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.Header.Get(TenantHeader)
			if code == "" {
				code = tenant.DefaultTenant
			}

			if _, err := registry.Pool(code); err != nil {
				utils.RespondErrorWithCode(
					w, http.StatusBadRequest, utils.ErrCodeInvalidTenant, "Unknown tenant code", nil, err,
				)
				return
			}

			next.ServeHTTP(w, r.WithContext(tenant.WithTenant(r.Context(), code)))
		})
	}
}
