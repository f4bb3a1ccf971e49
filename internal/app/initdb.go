package app

import (
	"errors"
	"strings"

	"github.com/peluqueria/salond/internal/auth"
	"github.com/peluqueria/salond/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// checkAdmin creates the configured admin account or repairs its role,
// password and deletion state. Nothing happens without an admin password.
func (a *Application) checkAdmin() {
	email := strings.ToLower(strings.TrimSpace(a.appConfig.Auth.AdminEmail))
	password := a.appConfig.Auth.AdminPassword
	if email == "" || password == "" {
		return
	}

	var user domain.User
	err := a.gormDB.Unscoped().Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := auth.HashPassword(password)
		if err != nil {
			zap.L().Error("failed to hash admin password", zap.Error(err))
			return
		}
		if err := a.gormDB.Create(&domain.User{
			Name:         "administrator",
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
		}).Error; err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("email", email))
		}
		return
	case err != nil:
		zap.L().Error("failed to query admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(user.PasswordHash) == ""
	resetRole := user.Role != domain.RoleAdmin
	restore := user.DeletedAt.Valid

	if !resetPassword && !resetRole && !restore {
		return
	}

	updates := map[string]interface{}{}
	if resetPassword {
		hash, err := auth.HashPassword(password)
		if err != nil {
			zap.L().Error("failed to hash admin password", zap.Error(err))
			return
		}
		updates["password_hash"] = hash
	}
	if resetRole {
		updates["role"] = domain.RoleAdmin
	}
	if restore {
		updates["deleted_at"] = nil
	}

	if err := a.gormDB.Unscoped().Model(&domain.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default admin account",
		zap.String("email", email),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole),
		zap.Bool("restored", restore))
}
