package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/peluqueria/salond/internal/app"
	"github.com/peluqueria/salond/internal/auth"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const appContextKey = "appctx"

type Server struct {
	root    *echo.Echo
	appCtx  app.AppContext
	origins OriginList
}

// NewServer builds the echo instance with the middleware chain in order:
// origin guard, CORS, security headers, rate limit, request id and access
// log, body limit, auth, then /uploads and the liveness route.
func NewServer(appCtx app.AppContext) *Server {
	cfg := appCtx.Config()
	s := &Server{
		root:    echo.New(),
		appCtx:  appCtx,
		origins: NewOriginList(cfg.Web.AllowedOrigins),
	}
	e := s.root
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HTTPErrorHandler(cfg.IsProduction())
	if cfg.Web.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	e.Use(middleware.Recover())
	e.Use(OriginGuard(s.origins))
	e.Use(CORS(cfg.Web.AllowedOrigins))
	e.Use(SecureHeaders())
	if cfg.Web.Metrics {
		p := prometheus.NewPrometheus(cfg.System.Appid, nil)
		p.Use(e)
	}
	e.Use(RateLimit(appCtx.RateLimiter()))
	e.Use(RequestID())
	e.Use(AccessLog())
	if cfg.Web.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Web.BodyLimit))
	}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, appCtx)
			return next(c)
		}
	})
	e.Use(auth.Middleware(appCtx.Issuer()))

	e.Static("/uploads", cfg.GetUploadDir())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Backend funcionando!")
	})
	return s
}

// GetAppContext returns the application bound to the request.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(appContextKey).(app.AppContext)
}

// OriginAllowed reports whether origin is on the CORS allow-list.
func (s *Server) OriginAllowed(origin string) bool {
	return s.origins.Allowed(origin)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.root.ServeHTTP(w, r)
}

func (s *Server) ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.GET(path, h, m...)
}

func (s *Server) ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.POST(path, h, m...)
}

func (s *Server) ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.PUT(path, h, m...)
}

func (s *Server) ApiPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.PATCH(path, h, m...)
}

func (s *Server) ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.root.DELETE(path, h, m...)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, shutdownTimeout time.Duration) error {
	cfg := s.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("web server listening", zap.String("namespace", "web"), zap.String("addr", addr))
		errCh <- s.root.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "web server")
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.root.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "web server shutdown")
	}
	zap.L().Info("web server stopped", zap.String("namespace", "web"))
	return nil
}
