package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/webserver"
	"gorm.io/gorm"
)

func registerJWTRoutes(s *webserver.Server) {
	s.ApiGET("/api/jwt/verify", verifyToken, auth.RequireAuth)
	s.ApiPOST("/api/jwt/refresh", refreshToken, auth.RequireAuth)
}

func verifyToken(c echo.Context) error {
	return ok(c, map[string]interface{}{
		"valid": true,
		"user":  identity(c),
	})
}

// refreshToken re-reads the account so a changed role or a deleted user is
// reflected in the new token.
func refreshToken(c echo.Context) error {
	ident := identity(c)
	var user domain.User
	err := GetDB(c).Where("id = ?", ident.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusUnauthorized, "USER_NOT_FOUND", "User no longer exists", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query user", err)
	}

	token, err := GetAppContext(c).Issuer().Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_FAILED", "Failed to issue token", err.Error())
	}
	return ok(c, authResponse{Token: token, User: &user})
}
