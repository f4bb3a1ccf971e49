package webserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorDetail travels as the Internal error of an echo.HTTPError and is
// rendered in the "error" field outside production.
type ErrorDetail struct {
	Code   string      `json:"code,omitempty"`
	Detail interface{} `json:"detail,omitempty"`
}

func (d *ErrorDetail) Error() string {
	if d.Detail == nil {
		return d.Code
	}
	return fmt.Sprintf("%s: %v", d.Code, d.Detail)
}

// NewError builds an HTTP error carrying a machine code and optional detail.
func NewError(status int, code, message string, detail interface{}) *echo.HTTPError {
	he := echo.NewHTTPError(status, message)
	he.Internal = &ErrorDetail{Code: code, Detail: detail}
	return he
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string      `json:"message"`
	Error   interface{} `json:"error"`
}

// HTTPErrorHandler renders {message, error}. In production 5xx messages are
// replaced and details are never sent.
func HTTPErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)
		var detail interface{}

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			message = fmt.Sprint(he.Message)
			switch in := he.Internal.(type) {
			case nil:
			case *ErrorDetail:
				detail = in
			default:
				detail = &ErrorDetail{Detail: in.Error()}
			}
		} else {
			detail = &ErrorDetail{Code: "INTERNAL_ERROR", Detail: err.Error()}
		}

		if status >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("namespace", "web"),
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", status),
				zap.Error(err),
				zap.Stack("stack"))
		}

		body := ErrorResponse{Message: message, Error: struct{}{}}
		if !production && detail != nil {
			body.Error = detail
		}
		if production && status >= http.StatusInternalServerError {
			body.Message = http.StatusText(http.StatusInternalServerError)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			zap.L().Error("write error response", zap.String("namespace", "web"), zap.Error(werr))
		}
	}
}
