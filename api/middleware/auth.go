package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/surplus-backend/api/responses"
	pkgAuth "github.com/angelmondragon/surplus-backend/pkg/auth"
	"github.com/angelmondragon/surplus-backend/pkg/auth/session"
	"github.com/angelmondragon/surplus-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
)

// Auth admits requests carrying a valid bearer token whose session is still
// live, and puts the caller's id and role on the context. Expired tokens get
// a distinct message so clients know to refresh rather than log in again.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(err error) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="surplus"`)
				responses.WriteError(ctx, logg, w, err)
			}

			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, raw)
			switch {
			case errors.Is(err, pkgAuth.ErrTokenExpired):
				reject(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "token expired"))
				return
			case err != nil:
				reject(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if sessions != nil {
				live, err := sessions.HasSession(ctx, claims.ID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !live {
					reject(pkgerrors.New(pkgerrors.CodeUnauthorized, "session revoked"))
					return
				}
			}

			userID, role := claims.UserID.String(), string(claims.Role)
			ctx = WithRole(WithUserID(ctx, userID), role)
			ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" with any casing of the scheme.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
