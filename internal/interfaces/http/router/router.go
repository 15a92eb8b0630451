// Package router assembles the gin engine: global middleware, the public
// surface and the authenticated /api/v1 groups.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/conexapi/backend/internal/infrastructure/auth"
	"github.com/conexapi/backend/internal/infrastructure/config"
	"github.com/conexapi/backend/internal/interfaces/http/handler"
	"github.com/conexapi/backend/internal/interfaces/http/middleware"
)

// Config carries everything the router needs to register routes.
type Config struct {
	Logger         *zap.Logger
	HTTP           config.HTTPConfig
	JWTService     *auth.JWTService
	TokenBlacklist auth.TokenBlacklist

	System       *handler.SystemHandler
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Order        *handler.OrderHandler
	Integration  *handler.IntegrationHandler
	MercadoLibre *handler.MercadoLibreHandler
	Siigo        *handler.SiigoHandler
}

// New builds the HTTP engine with all middleware and routes registered.
func New(cfg Config) (*gin.Engine, error) {
	if err := middleware.RegisterCustomValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.Recovery(cfg.Logger),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowMethods: cfg.HTTP.CORSAllowMethods,
			AllowHeaders: cfg.HTTP.CORSAllowHeaders,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", cfg.System.Health)

	api := engine.Group("/api/v1")

	// Public auth endpoints
	authRoutes := api.Group("/auth")
	authRoutes.POST("/register", cfg.Auth.Register)
	authRoutes.POST("/login", cfg.Auth.Login)
	authRoutes.POST("/refresh", cfg.Auth.Refresh)
	authRoutes.POST("/logout", cfg.Auth.Logout)

	// Everything below requires a valid access token
	jwtAuth := middleware.JWTAuth(middleware.JWTMiddlewareConfig{
		JWTService:     cfg.JWTService,
		TokenBlacklist: cfg.TokenBlacklist,
		Logger:         cfg.Logger,
	})

	me := api.Group("/auth", jwtAuth)
	me.GET("/me", cfg.Auth.Me)
	me.POST("/change-password", cfg.Auth.ChangePassword)

	users := api.Group("/users", jwtAuth, middleware.RequireAdmin())
	users.GET("", cfg.User.List)
	users.POST("", cfg.User.Create)
	users.GET("/:id", cfg.User.Get)
	users.PUT("/:id", cfg.User.Update)
	users.DELETE("/:id", cfg.User.Delete)

	orders := api.Group("/orders", jwtAuth)
	orders.GET("", cfg.Order.List)
	orders.POST("", cfg.Order.Create)
	orders.GET("/:id", cfg.Order.Get)
	orders.PUT("/:id", cfg.Order.Update)
	orders.DELETE("/:id", cfg.Order.Delete)
	orders.POST("/import/mercadolibre", cfg.Order.ImportMercadoLibre)

	integrations := api.Group("/integrations", jwtAuth)
	integrations.GET("", cfg.Integration.List)
	integrations.POST("", cfg.Integration.Create)
	integrations.GET("/:id", cfg.Integration.Get)
	integrations.PUT("/:id", cfg.Integration.Update)
	integrations.DELETE("/:id", cfg.Integration.Delete)

	mercadolibre := api.Group("/mercadolibre", jwtAuth)
	mercadolibre.GET("/profile", cfg.MercadoLibre.Profile)
	mercadolibre.GET("/orders", cfg.MercadoLibre.Orders)
	mercadolibre.PATCH("/items/:id", cfg.MercadoLibre.UpdateItem)

	siigo := api.Group("/siigo", jwtAuth)
	siigo.GET("/products", cfg.Siigo.Products)
	siigo.PUT("/products/:code/inventory", cfg.Siigo.UpdateInventory)
	siigo.POST("/invoices", cfg.Siigo.CreateInvoice)

	return engine, nil
}
