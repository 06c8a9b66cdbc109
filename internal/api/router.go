package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/catalog-system/internal/api/handler"
	"github.com/99minutos/catalog-system/internal/api/metrics"
	"github.com/99minutos/catalog-system/internal/api/middleware"
	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/service"
	"github.com/99minutos/catalog-system/internal/core/store"
	"github.com/99minutos/catalog-system/internal/core/strategy"
	_ "github.com/99minutos/catalog-system/internal/docs"
	"github.com/99minutos/catalog-system/internal/infrastructure/persistence"
)

// Options carries the router settings that do not come from the backend.
type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(b *persistence.Backend, opts Options) *echo.Echo {
	log := opts.Logger

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Pre(echomiddleware.RemoveTrailingSlash())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())

	// --- Dependencies ---
	itemStore := store.New[entity.Item, int64](b.Items,
		store.WithDeletePolicy(strategy.SoftDelete[entity.Item, int64](nil)),
		store.WithListener[entity.Item, int64](store.NewAuditListener[entity.Item](nil)),
	)
	propertyStore := store.New[entity.Property, uuid.UUID](b.Properties)
	userStore := store.New[entity.User, int64](b.Users,
		store.WithDeletePolicy(strategy.SoftDelete[entity.User, int64](nil)),
		store.WithListener[entity.User, int64](store.NewAuditListener[entity.User](nil)),
	)

	itemService := service.NewCRUDService[domain.Item, entity.Item, int64](itemStore, b.Tx, log)
	propertyService := service.NewCRUDService[domain.Property, entity.Property, uuid.UUID](propertyStore, b.Tx, log)
	authService := service.NewAuthService(userStore, b.Tx, opts.JWTSecret, opts.TokenTTL, log)

	items := handler.NewResource[domain.Item, int64]("items", itemService, b.Idempotency, handler.Int64Key, log)
	properties := handler.NewResource[domain.Property, uuid.UUID]("properties", propertyService, b.Idempotency, handler.UUIDKey, log)
	itemProperties := handler.NewItemPropertiesHandler(itemService, propertyService)
	authHandler := handler.NewAuthHandler(authService)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Catalog ---
	read := middleware.RBAC(domain.RoleAdmin, domain.RoleEditor, domain.RoleViewer)
	write := middleware.RBAC(domain.RoleAdmin, domain.RoleEditor)
	remove := middleware.RBAC(domain.RoleAdmin)

	v1 := e.Group("/v1", middleware.Auth(opts.JWTSecret))
	mount(v1, "/items", items, read, write, remove)
	v1.GET("/items/:id/properties", itemProperties.List, read)
	mount(v1, "/properties", properties, read, write, remove)

	// --- Health checks (no auth required) ---
	health := handler.NewHealthHandler(b.Checks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func mount[D any, K comparable](g *echo.Group, path string, r *handler.Resource[D, K], read, write, remove echo.MiddlewareFunc) {
	g.POST(path, r.Create, write)
	g.GET(path, r.List, read)
	g.GET(path+"/:id", r.Read, read)
	g.PUT(path, r.Update, write)
	g.DELETE(path+"/:id", r.Delete, remove)
}
