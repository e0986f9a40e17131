package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/api/handler"
	"github.com/clinicrpm/rpm-portal/internal/api/middleware"
	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
	"github.com/clinicrpm/rpm-portal/internal/infrastructure/http/handlers"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Log      zerolog.Logger
	Debug    bool
	Renderer echo.Renderer

	Sessions ports.SessionManager
	Auth     ports.AuthService
	Accounts ports.AccountService
	Patients ports.PatientService

	// Readiness checks keyed by dependency name.
	Checks map[string]handlers.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log, d.Debug)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(d.Log))
	e.Use(middleware.Session(d.Sessions, d.Log))

	// --- Health probes and metrics (no session) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(d.Checks).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Auth ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Sessions, d.Log)
	e.GET("/login", authHandler.LoginPage)
	e.POST("/login", authHandler.Login)
	e.GET("/logout", authHandler.Logout)
	e.GET("/api/check-session", authHandler.CheckSession)

	authed := middleware.RequireAuthenticated()

	// --- Dashboard ---
	e.GET("/", func(c echo.Context) error { return c.Redirect(http.StatusFound, "/dashboard") })
	e.GET("/dashboard", handler.NewDashboardHandler(d.Patients).Show, authed)

	// --- Patients & readings (clinic-scoped) ---
	patientHandler := handler.NewPatientHandler(d.Patients)
	api := e.Group("/api", authed)
	api.GET("/patients", patientHandler.List)
	api.POST("/patients", patientHandler.Create)
	api.GET("/patients/:id", patientHandler.Get)
	api.PUT("/patients/:id", patientHandler.Update)
	api.DELETE("/patients/:id", patientHandler.Delete)
	api.POST("/readings", patientHandler.AddReading)

	// --- Account manager (admin) ---
	accountHandler := handler.NewAccountHandler(d.Accounts)
	accounts := e.Group("/account-manager", authed, middleware.RequireRole(domain.RoleAdmin))
	accounts.GET("", accountHandler.Page)
	accounts.POST("", accountHandler.Create)
	accounts.GET("/:id", accountHandler.Get)
	accounts.PUT("/:id", accountHandler.Update)
	accounts.DELETE("/:id", accountHandler.Delete)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
