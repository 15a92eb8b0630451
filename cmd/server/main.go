package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identityapp "github.com/conexapi/backend/internal/application/identity"
	integrationapp "github.com/conexapi/backend/internal/application/integration"
	tradeapp "github.com/conexapi/backend/internal/application/trade"
	"github.com/conexapi/backend/internal/domain/integration"
	"github.com/conexapi/backend/internal/infrastructure/auth"
	"github.com/conexapi/backend/internal/infrastructure/config"
	"github.com/conexapi/backend/internal/infrastructure/logger"
	"github.com/conexapi/backend/internal/infrastructure/persistence"
	"github.com/conexapi/backend/internal/infrastructure/platform"
	"github.com/conexapi/backend/internal/interfaces/http/handler"
	"github.com/conexapi/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ConexAPI backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Redis is optional outside production; a process-local blacklist
	// keeps logout working in development.
	var blacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = redisBlacklist
		log.Info("Redis token blacklist connected")
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	credentialRepo := persistence.NewGormCredentialRepository(db.DB)

	// Token lifecycle: one refresher per platform, identities from config
	tokenService := integrationapp.NewTokenService(credentialRepo, log.Named("token"))
	tokenService.RegisterRefresher(
		platform.NewMercadoLibreRefresher(cfg.MercadoLibre.APIBaseURL, cfg.Integration.HTTPTimeout),
		integration.ClientIdentity{
			ClientID:     cfg.MercadoLibre.AppID,
			ClientSecret: cfg.MercadoLibre.SecretKey,
		},
	)
	tokenService.RegisterRefresher(
		platform.NewSiigoRefresher(cfg.Siigo.AuthURL, cfg.Integration.HTTPTimeout),
		integration.ClientIdentity{
			ClientID:     cfg.Siigo.ClientID,
			ClientSecret: cfg.Siigo.ClientSecret,
			PartnerID:    cfg.Siigo.PartnerID,
		},
	)

	// Platform API clients draw tokens from the token service
	marketplace := platform.NewMercadoLibreClient(cfg.MercadoLibre.APIBaseURL, cfg.Integration.HTTPTimeout, tokenService)
	erp := platform.NewSiigoClient(cfg.Siigo.APIBaseURL, cfg.Siigo.PartnerID, cfg.Integration.HTTPTimeout, tokenService)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log.Named("auth"))
	userService := identityapp.NewUserService(userRepo, log.Named("user"))
	credentialService := integrationapp.NewCredentialService(credentialRepo, cfg.Integration.RefreshMargin, log.Named("credential"))
	orderService := tradeapp.NewOrderService(orderRepo, marketplace, log.Named("order"))

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.New(router.Config{
		Logger:         log,
		HTTP:           cfg.HTTP,
		JWTService:     jwtService,
		TokenBlacklist: blacklist,
		System:         handler.NewSystemHandler(db),
		Auth:           handler.NewAuthHandler(authService),
		User:           handler.NewUserHandler(userService),
		Order:          handler.NewOrderHandler(orderService),
		Integration:    handler.NewIntegrationHandler(credentialService),
		MercadoLibre:   handler.NewMercadoLibreHandler(marketplace),
		Siigo:          handler.NewSiigoHandler(erp),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
