package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/peluqueria/salond/internal/ratelimit"
	"go.uber.org/zap"
)

// OriginList is the CORS allow-list shared with websocket upgrades.
type OriginList map[string]bool

func NewOriginList(origins []string) OriginList {
	l := make(OriginList, len(origins))
	for _, o := range origins {
		l[o] = true
	}
	return l
}

func (l OriginList) Allowed(origin string) bool {
	return l[origin]
}

// OriginGuard rejects requests from origins outside the list before any
// route runs. Requests without an Origin header pass.
func OriginGuard(allowed OriginList) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin != "" && !allowed.Allowed(origin) {
				return NewError(http.StatusForbidden, "CORS_REJECTED", "Not allowed by CORS", origin)
			}
			return next(c)
		}
	}
}

// CORS answers preflights and sets the allow headers for listed origins.
func CORS(origins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

// SecureHeaders sets the hardening headers. No CSP is sent and resources
// may be embedded cross-origin.
func SecureHeaders() echo.MiddlewareFunc {
	secure := middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := secure(next)
		return func(c echo.Context) error {
			c.Response().Header().Set("Cross-Origin-Resource-Policy", "cross-origin")
			return h(c)
		}
	}
}

// RateLimit counts requests per client IP in fixed windows and answers 429
// once the window is exhausted.
func RateLimit(store *ratelimit.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			res := store.Hit(c.RealIP(), now)
			resetIn := int(res.Reset.Sub(now).Round(time.Second) / time.Second)
			if resetIn < 0 {
				resetIn = 0
			}
			h := c.Response().Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(resetIn))
			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(resetIn))
				return NewError(http.StatusTooManyRequests, "RATE_LIMITED",
					"Too many requests, please try again later.", nil)
			}
			return next(c)
		}
	}
}

// RequestID tags each request with X-Request-ID, keeping a client supplied one.
func RequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// AccessLog writes one zap line per request.
func AccessLog() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRequestID: true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "http"),
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Info("request", fields...)
			return nil
		},
	})
}
