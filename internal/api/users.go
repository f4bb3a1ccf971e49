package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/events"
	"github.com/peluqueria/salond/internal/webserver"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=client admin"`
}

type userUpdatePayload struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email    *string `json:"email" validate:"omitempty,email,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Password *string `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *string `json:"role" validate:"omitempty,oneof=client admin"`
}

func (p *userPayload) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = normalizeEmail(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
}

func (p *userUpdatePayload) normalize() {
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		p.Email = &email
	}
}

// userEvent is the broadcast form of a user; contact details stay out of
// websocket payloads.
func userEvent(u *domain.User) map[string]interface{} {
	return map[string]interface{}{"id": u.ID, "name": u.Name, "role": u.Role}
}

func registerUserRoutes(s *webserver.Server) {
	s.ApiGET("/api/users", listUsers, adminOnly)
	s.ApiGET("/api/users/me", currentUser, auth.RequireAuth)
	s.ApiGET("/api/users/:id", getUser, auth.RequireAuth)
	s.ApiPOST("/api/users", createUser, adminOnly)
	s.ApiPUT("/api/users/:id", updateUser, auth.RequireAuth)
	s.ApiPATCH("/api/users/:id", updateUser, auth.RequireAuth)
	s.ApiDELETE("/api/users/:id", deleteUser, adminOnly)
}

func listUsers(c echo.Context) error {
	db := GetDB(c).Model(&domain.User{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = containsFilter(db, q, "name", "email")
	}
	if role := strings.TrimSpace(c.QueryParam("role")); role != "" {
		if !domain.ValidRole(role) {
			return fail(c, http.StatusBadRequest, "INVALID_ROLE", "Invalid role filter", role)
		}
		db = db.Where("role = ?", role)
	}

	var users []domain.User
	if err := db.Order("id DESC").Find(&users).Error; err != nil {
		return databaseError(c, "Failed to query users", err)
	}
	return ok(c, users)
}

func currentUser(c echo.Context) error {
	return findUser(c, identity(c).UserID)
}

func getUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	if ident := identity(c); !ident.IsAdmin() && ident.UserID != id {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return findUser(c, id)
}

func findUser(c echo.Context, id int64) error {
	var user domain.User
	if err := GetDB(c).Where("id = ?", id).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query user", err)
	}
	return ok(c, user)
}

func emailTaken(c echo.Context, email string, exceptID int64) (bool, error) {
	var count int64
	err := GetDB(c).Unscoped().Model(&domain.User{}).
		Where("email = ? AND id <> ?", email, exceptID).
		Count(&count).Error
	return count > 0, err
}

func createUser(c echo.Context) error {
	var payload userPayload
	if err := bindAndValidate(c, &payload, "user"); err != nil {
		return err
	}
	email := normalizeEmail(payload.Email)
	taken, err := emailTaken(c, email, 0)
	if err != nil {
		return databaseError(c, "Failed to query users", err)
	}
	if taken {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "HASH_FAILED", "Failed to create user", err.Error())
	}
	role := payload.Role
	if role == "" {
		role = domain.RoleClient
	}
	user := domain.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        email,
		Phone:        strings.TrimSpace(payload.Phone),
		PasswordHash: hash,
		Role:         role,
	}
	if err := GetDB(c).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return databaseError(c, "Failed to create user", err)
	}
	publish(c, events.UserCreated, userEvent(&user))
	return created(c, user)
}

func updateUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	ident := identity(c)
	if !ident.IsAdmin() && ident.UserID != id {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	var payload userUpdatePayload
	if err := bindAndValidate(c, &payload, "user"); err != nil {
		return err
	}

	var user domain.User
	if err := GetDB(c).Where("id = ?", id).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query user", err)
	}

	if payload.Role != nil && *payload.Role != user.Role && !ident.IsAdmin() {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Only an admin can change roles", nil)
	}

	updates := map[string]interface{}{}
	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(*payload.Name)
	}
	if payload.Email != nil {
		email := normalizeEmail(*payload.Email)
		if email != user.Email {
			taken, err := emailTaken(c, email, id)
			if err != nil {
				return databaseError(c, "Failed to query users", err)
			}
			if taken {
				return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
			}
			updates["email"] = email
		}
	}
	if payload.Phone != nil {
		updates["phone"] = strings.TrimSpace(*payload.Phone)
	}
	if payload.Password != nil {
		hash, err := auth.HashPassword(*payload.Password)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "HASH_FAILED", "Failed to update user", err.Error())
		}
		updates["password_hash"] = hash
	}
	if payload.Role != nil {
		updates["role"] = *payload.Role
	}

	if len(updates) > 0 {
		if err := GetDB(c).Model(&user).Updates(updates).Error; err != nil {
			if isDuplicateKey(err) {
				return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
			}
			return databaseError(c, "Failed to update user", err)
		}
	}
	if err := GetDB(c).Where("id = ?", id).First(&user).Error; err != nil {
		return databaseError(c, "Failed to query user", err)
	}

	publish(c, events.UserUpdated, userEvent(&user))
	return ok(c, user)
}

func deleteUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.User{})
	if res.Error != nil {
		return databaseError(c, "Failed to delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	}

	zap.L().Info("user deleted", zap.String("namespace", "api"), zap.Int64("id", id))
	publish(c, events.UserDeleted, map[string]interface{}{"id": id})
	return ok(c, map[string]interface{}{"id": id})
}
