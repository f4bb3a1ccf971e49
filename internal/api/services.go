package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/events"
	"github.com/peluqueria/salond/internal/webserver"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type servicePayload struct {
	Name        string           `json:"name" validate:"required,min=1,max=200"`
	Description string           `json:"description" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Duration    int              `json:"duration" validate:"required,gt=0"`
}

type serviceUpdatePayload struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price"`
	Duration    *int             `json:"duration" validate:"omitempty,gt=0"`
}

// registerServiceRoutes registers the salon service catalog
func registerServiceRoutes(s *webserver.Server) {
	s.ApiGET("/api/servicios", listServices)
	s.ApiGET("/api/servicios/:id", getService)
	s.ApiPOST("/api/servicios", createService, adminOnly)
	s.ApiPUT("/api/servicios/:id", updateService, adminOnly)
	s.ApiPATCH("/api/servicios/:id", updateService, adminOnly)
	s.ApiDELETE("/api/servicios/:id", deleteService, adminOnly)
}

func listServices(c echo.Context) error {
	db := GetDB(c).Model(&domain.Service{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = containsFilter(db, q, "name", "description")
	}

	var services []domain.Service
	if err := db.Order("id DESC").Find(&services).Error; err != nil {
		return databaseError(c, "Failed to query services", err)
	}
	return ok(c, services)
}

func getService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}

	var s domain.Service
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query service", err)
	}
	return ok(c, s)
}

func createService(c echo.Context) error {
	var payload servicePayload
	if err := bindAndValidate(c, &payload, "service"); err != nil {
		return err
	}
	price := decimal.Zero
	if payload.Price != nil {
		if err := checkPrice(c, payload.Price); err != nil {
			return err
		}
		price = *payload.Price
	}

	s := domain.Service{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		Price:       price,
		Duration:    payload.Duration,
	}
	if err := GetDB(c).Create(&s).Error; err != nil {
		return databaseError(c, "Failed to create service", err)
	}
	publish(c, events.ServiceCreated, &s)
	return created(c, s)
}

func updateService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}
	var payload serviceUpdatePayload
	if err := bindAndValidate(c, &payload, "service"); err != nil {
		return err
	}

	var s domain.Service
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query service", err)
	}

	if payload.Name != nil {
		s.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Description != nil {
		s.Description = strings.TrimSpace(*payload.Description)
	}
	if payload.Price != nil {
		if err := checkPrice(c, payload.Price); err != nil {
			return err
		}
		s.Price = *payload.Price
	}
	if payload.Duration != nil {
		s.Duration = *payload.Duration
	}

	if err := GetDB(c).Save(&s).Error; err != nil {
		return databaseError(c, "Failed to update service", err)
	}
	publish(c, events.ServiceUpdated, &s)
	return ok(c, s)
}

// deleteService removes the service; availability slots keep existing
// without a service.
func deleteService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}

	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		var s domain.Service
		if err := tx.Where("id = ?", id).First(&s).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Availability{}).Where("service_id = ?", id).
			Update("service_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&s).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DELETE_FAILED", "Failed to delete service", err.Error())
	}

	zap.L().Info("service deleted", zap.String("namespace", "api"), zap.Int64("id", id))
	publish(c, events.ServiceDeleted, map[string]interface{}{"id": id})
	return ok(c, map[string]interface{}{"id": id})
}
