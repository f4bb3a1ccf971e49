package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/app"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/webserver"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// adminOnly admits a bearer whose stored account still holds the admin
// role, so a demoted or deleted admin loses access before the token expires.
func adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return auth.RequireRole(domain.RoleAdmin)(func(c echo.Context) error {
		var user domain.User
		err := GetDB(c).Select("id", "role").Where("id = ?", identity(c).UserID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusUnauthorized, "USER_NOT_FOUND", "User no longer exists", nil)
		} else if err != nil {
			return databaseError(c, "Failed to query user", err)
		}
		if !user.IsAdmin() {
			return fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		}
		return next(c)
	})
}

// Register mounts every resource on the server.
func Register(s *webserver.Server) {
	registerAuthRoutes(s)
	registerJWTRoutes(s)
	registerUserRoutes(s)
	registerProductRoutes(s)
	registerServiceRoutes(s)
	registerAvailabilityRoutes(s)
	registerOrderRoutes(s)
	registerOrderProductRoutes(s)
	registerEmailRoutes(s)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

// GetDB returns the database bound to the request context.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func publish(c echo.Context, event string, data interface{}) {
	GetAppContext(c).Events().Publish(event, data)
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return webserver.NewError(status, code, message, detail)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// queryID parses an optional numeric filter. ok is false when the value is
// present but not a positive integer.
func queryID(c echo.Context, name string) (id int64, present bool, ok bool) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return 0, false, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, true, false
	}
	return id, true, true
}

func queryBool(c echo.Context, name string) (val bool, present bool, ok bool) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return false, false, true
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, true, false
	}
	return b, true, true
}

// normalizer is implemented by payloads that clean their fields before
// validation.
type normalizer interface {
	normalize()
}

// bindAndValidate binds the body into payload, normalizes it and runs its
// validate tags.
func bindAndValidate(c echo.Context, payload interface{}, what string) error {
	if err := c.Bind(payload); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code != http.StatusBadRequest {
			return err
		}
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse "+what, err.Error())
	}
	if n, ok := payload.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(payload); err != nil {
		return handleValidationError(c, err)
	}
	return nil
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", err.Error())
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", describeFieldError(verrs[0]), fields)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// databaseError reports an unexpected storage failure as 500.
func databaseError(c echo.Context, message string, err error) error {
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", message, err.Error())
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// containsFilter matches q as a case-insensitive substring of any column.
func containsFilter(db *gorm.DB, q string, columns ...string) *gorm.DB {
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
		for _, col := range columns {
			conds = append(conds, col+" ILIKE ?")
			args = append(args, "%"+q+"%")
		}
	} else {
		for _, col := range columns {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(q)+"%")
		}
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

// identity returns the caller; routes using it sit behind auth.RequireAuth.
func identity(c echo.Context) *auth.Identity {
	ident, _ := auth.FromContext(c)
	return ident
}
