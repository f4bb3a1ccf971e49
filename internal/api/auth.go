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

type registerPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func registerAuthRoutes(s *webserver.Server) {
	s.ApiPOST("/auth/register", register)
	s.ApiPOST("/auth/login", login)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *registerPayload) normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = normalizeEmail(p.Email)
	p.Phone = strings.TrimSpace(p.Phone)
}

func (p *loginPayload) normalize() {
	p.Email = normalizeEmail(p.Email)
}

func register(c echo.Context) error {
	var payload registerPayload
	if err := bindAndValidate(c, &payload, "registration"); err != nil {
		return err
	}
	email := normalizeEmail(payload.Email)

	var count int64
	if err := GetDB(c).Unscoped().Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return databaseError(c, "Failed to query users", err)
	}
	if count > 0 {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "HASH_FAILED", "Failed to register user", err.Error())
	}
	user := domain.User{
		Name:         strings.TrimSpace(payload.Name),
		Email:        email,
		Phone:        strings.TrimSpace(payload.Phone),
		PasswordHash: hash,
		Role:         domain.RoleClient,
	}
	if err := GetDB(c).Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
		}
		return databaseError(c, "Failed to register user", err)
	}

	token, err := GetAppContext(c).Issuer().Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_FAILED", "Failed to issue token", err.Error())
	}
	zap.L().Info("user registered", zap.String("namespace", "auth"), zap.Int64("user_id", user.ID))
	publish(c, events.UserCreated, userEvent(&user))
	return created(c, authResponse{Token: token, User: &user})
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := bindAndValidate(c, &payload, "credentials"); err != nil {
		return err
	}

	var user domain.User
	err := GetDB(c).Where("email = ?", normalizeEmail(payload.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query user", err)
	}
	if !auth.CheckPassword(user.PasswordHash, payload.Password) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials", nil)
	}

	token, err := GetAppContext(c).Issuer().Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_FAILED", "Failed to issue token", err.Error())
	}
	return ok(c, authResponse{Token: token, User: &user})
}
