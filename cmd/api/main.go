package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/bossbudget/usuarios-api/config"
	"github.com/bossbudget/usuarios-api/internal/cache"
	"github.com/bossbudget/usuarios-api/internal/infrastructure/database"
	"github.com/bossbudget/usuarios-api/internal/interface/middleware"
	"github.com/bossbudget/usuarios-api/internal/router"
	"github.com/bossbudget/usuarios-api/pkg/helpers"
	"github.com/bossbudget/usuarios-api/pkg/response"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)

	// Storage bootstrap: MySQL primary, SQLite fallback. The manager
	// connects in the background; block here until it is usable so the
	// server never accepts traffic without storage.
	manager := database.NewManager(database.Options{
		MySQLDSN:        cfg.MySQLDSN(),
		SQLitePath:      cfg.SQLitePath,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogSQL:          cfg.IsDevelopment(),
	}, logger)
	if err := manager.AwaitReady(context.Background()); err != nil {
		logger.WithError(err).Fatal("error inicializando base de datos")
	}
	defer func() { _ = manager.Close() }()
	logger.WithField("engine", manager.Engine()).Info("base de datos lista")

	// Redis is optional; without it the stats cache is a no-op.
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	statsCache := cache.NewStatsCache(rdb, cfg.StatsCacheTTL)

	r := buildEngine(cfg, logger, manager, statsCache)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Infof("servidor ejecutándose en el puerto %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("recibida señal de apagado, cerrando servidor")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("cierre forzado del servidor: %v", err)
	}
	logger.Info("servidor cerrado correctamente")
}

// buildEngine assembles the middleware chain, the 404 fallback, and every
// feature module onto a fresh gin engine.
func buildEngine(cfg *config.Config, logger *logrus.Logger, manager *database.Manager, statsCache *cache.StatsCache) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger, cfg.IsDevelopment()))
	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.CORSOrigins()
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	r.Use(cors.New(corsCfg))

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Ruta no encontrada: "+c.Request.URL.Path)
	})

	reg := router.NewRegistry(r)
	router.InitModules(reg, router.Deps{
		Cfg:     cfg,
		Logger:  logger,
		Manager: manager,
		Stats:   statsCache,
	})
	reg.RegisterAll()
	return r
}
