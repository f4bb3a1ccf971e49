package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	tokenContextKey    = "user"
	identityContextKey = "identity"
)

// Middleware verifies a bearer token when one is sent and stores the caller
// identity on the context. Requests without an Authorization header pass
// through anonymous; RequireAuth decides whether that is acceptable.
func Middleware(issuer *Issuer) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get(echo.HeaderAuthorization) == ""
		},
		SigningKey:    issuer.secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    tokenContextKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(Claims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").SetInternal(err)
		},
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			if token, ok := c.Get(tokenContextKey).(*jwt.Token); ok {
				claims, ok := token.Claims.(*Claims)
				if !ok {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
				}
				ident, err := claims.Identity()
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").SetInternal(err)
				}
				c.Set(identityContextKey, ident)
			}
			return next(c)
		})
	}
}

// FromContext returns the verified caller, if any.
func FromContext(c echo.Context) (*Identity, bool) {
	ident, ok := c.Get(identityContextKey).(*Identity)
	return ident, ok && ident != nil
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := FromContext(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
		return next(c)
	}
}

// RequireRole rejects anonymous callers with 401 and other roles with 403.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := FromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			if ident.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}
			return next(c)
		}
	}
}
