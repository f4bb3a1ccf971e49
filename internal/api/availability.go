package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/domain"
	"github.com/peluqueria/salond/internal/webserver"
	"gorm.io/gorm"
)

type availabilityPayload struct {
	ServiceID *int64 `json:"serviceId" validate:"omitempty,gt=0"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
	Available *bool  `json:"available"`
}

type availabilityUpdatePayload struct {
	ServiceID *int64  `json:"serviceId" validate:"omitempty,gt=0"`
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	Available *bool   `json:"available"`
}

func registerAvailabilityRoutes(s *webserver.Server) {
	s.ApiGET("/api/disponibilidades", listAvailability)
	s.ApiGET("/api/disponibilidades/:id", getAvailability)
	s.ApiPOST("/api/disponibilidades", createAvailability, adminOnly)
	s.ApiPUT("/api/disponibilidades/:id", updateAvailability, adminOnly)
	s.ApiPATCH("/api/disponibilidades/:id", updateAvailability, adminOnly)
	s.ApiDELETE("/api/disponibilidades/:id", deleteAvailability, adminOnly)
}

// normalizeDate accepts any common date notation and returns YYYY-MM-DD.
func normalizeDate(s string) (string, error) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), time.Local)
	if err != nil {
		return "", err
	}
	return t.Format(domain.DateLayout), nil
}

// normalizeClock accepts H:MM or HH:MM and returns HH:MM.
func normalizeClock(s string) (string, error) {
	t, err := time.Parse(domain.ClockLayout, strings.TrimSpace(s))
	if err != nil {
		t, err = time.Parse("15:04:05", strings.TrimSpace(s))
		if err != nil {
			return "", err
		}
	}
	return t.Format(domain.ClockLayout), nil
}

func listAvailability(c echo.Context) error {
	db := GetDB(c).Model(&domain.Availability{})

	if d := strings.TrimSpace(c.QueryParam("date")); d != "" {
		date, err := normalizeDate(d)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid date filter", err.Error())
		}
		db = db.Where("date = ?", date)
	}
	serviceID, present, valid := queryID(c, "serviceId")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid serviceId filter", nil)
	}
	if present {
		db = db.Where("service_id = ?", serviceID)
	}
	available, present, valid := queryBool(c, "available")
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid available filter", nil)
	}
	if present {
		db = db.Where("available = ?", available)
	}

	var rows []domain.Availability
	if err := db.Order("id DESC").Find(&rows).Error; err != nil {
		return databaseError(c, "Failed to query availability", err)
	}
	return ok(c, rows)
}

func getAvailability(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid availability ID", nil)
	}
	var a domain.Availability
	if err := GetDB(c).Where("id = ?", id).First(&a).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "AVAILABILITY_NOT_FOUND", "Availability not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query availability", err)
	}
	return ok(c, a)
}

// applySlot validates and normalizes date and times into a.
func applySlot(c echo.Context, a *domain.Availability, date, start, end *string) error {
	if date != nil {
		d, err := normalizeDate(*date)
		if err != nil {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "date is invalid", err.Error())
		}
		a.Date = d
	}
	if start != nil {
		t, err := normalizeClock(*start)
		if err != nil {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "startTime must be HH:MM", err.Error())
		}
		a.StartTime = t
	}
	if end != nil {
		t, err := normalizeClock(*end)
		if err != nil {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "endTime must be HH:MM", err.Error())
		}
		a.EndTime = t
	}
	// HH:MM compares lexically
	if a.StartTime >= a.EndTime {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "startTime must be before endTime", nil)
	}
	return nil
}

func checkServiceExists(c echo.Context, id *int64) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := GetDB(c).Model(&domain.Service{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return databaseError(c, "Failed to query service", err)
	}
	if count == 0 {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", *id)
	}
	return nil
}

func createAvailability(c echo.Context) error {
	var payload availabilityPayload
	if err := bindAndValidate(c, &payload, "availability"); err != nil {
		return err
	}

	a := domain.Availability{ServiceID: payload.ServiceID, Available: true}
	if payload.Available != nil {
		a.Available = *payload.Available
	}
	if err := applySlot(c, &a, &payload.Date, &payload.StartTime, &payload.EndTime); err != nil {
		return err
	}
	if err := checkServiceExists(c, a.ServiceID); err != nil {
		return err
	}

	if err := GetDB(c).Create(&a).Error; err != nil {
		return databaseError(c, "Failed to create availability", err)
	}
	return created(c, a)
}

func updateAvailability(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid availability ID", nil)
	}
	var payload availabilityUpdatePayload
	if err := bindAndValidate(c, &payload, "availability"); err != nil {
		return err
	}

	var a domain.Availability
	if err := GetDB(c).Where("id = ?", id).First(&a).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "AVAILABILITY_NOT_FOUND", "Availability not found", nil)
	} else if err != nil {
		return databaseError(c, "Failed to query availability", err)
	}

	if err := applySlot(c, &a, payload.Date, payload.StartTime, payload.EndTime); err != nil {
		return err
	}
	if payload.ServiceID != nil {
		if err := checkServiceExists(c, payload.ServiceID); err != nil {
			return err
		}
		a.ServiceID = payload.ServiceID
	}
	if payload.Available != nil {
		a.Available = *payload.Available
	}

	if err := GetDB(c).Save(&a).Error; err != nil {
		return databaseError(c, "Failed to update availability", err)
	}
	return ok(c, a)
}

func deleteAvailability(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid availability ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Availability{})
	if res.Error != nil {
		return databaseError(c, "Failed to delete availability", res.Error)
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "AVAILABILITY_NOT_FOUND", "Availability not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}
