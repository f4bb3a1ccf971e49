package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/peluqueria/salond/internal/mailer"
	"github.com/peluqueria/salond/internal/webserver"
)

func registerEmailRoutes(s *webserver.Server) {
	s.ApiPOST("/api/email", sendContactEmail)
}

func sendContactEmail(c echo.Context) error {
	var payload mailer.ContactMessage
	if err := bindAndValidate(c, &payload, "message"); err != nil {
		return err
	}
	m := GetAppContext(c).Mailer()
	if m == nil {
		return fail(c, http.StatusServiceUnavailable, "MAIL_DISABLED", "Email service is not configured", nil)
	}
	if err := m.Queue(payload); err != nil {
		return fail(c, http.StatusServiceUnavailable, "MAIL_QUEUE_FULL", "Email could not be queued", err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"message": "Email queued"})
}
