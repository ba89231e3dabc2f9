package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/api/responses"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
)

// VendorResolver maps a vendor user to its storefront profile id.
type VendorResolver interface {
	ResolveVendorID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// VendorContext loads the caller's vendor profile id so vendor handlers can
// scope catalog and order queries. It must run after Auth.
func VendorContext(resolver VendorResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if resolver == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vendor resolver unavailable"))
				return
			}
			userID, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			vendorID, err := resolver.ResolveVendorID(ctx, userID)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil {
					responses.WriteError(ctx, logg, w, typed)
					return
				}
				if errors.Is(err, gorm.ErrRecordNotFound) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile not found"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve vendor"))
				return
			}

			ctx = WithVendorID(ctx, vendorID.String())
			if logg != nil {
				ctx = logg.WithField(ctx, "vendor_id", vendorID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
