package router

import (
	"github.com/sirupsen/logrus"

	"github.com/bossbudget/usuarios-api/config"
	"github.com/bossbudget/usuarios-api/internal/application"
	"github.com/bossbudget/usuarios-api/internal/cache"
	"github.com/bossbudget/usuarios-api/internal/infrastructure/database"
	handlers "github.com/bossbudget/usuarios-api/internal/interface/http"
	"github.com/bossbudget/usuarios-api/internal/router/modules"
)

// Deps are the explicitly constructed infrastructure handles the modules
// need. They are injected from main; nothing here is a package-level
// singleton.
type Deps struct {
	Cfg     *config.Config
	Logger  *logrus.Logger
	Manager *database.Manager
	Stats   *cache.StatsCache
}

// InitModules builds the repository, service, and handlers from deps and
// registers every feature module. Called once during startup.
func InitModules(r *Registry, deps Deps) {
	repo := database.NewUserRepository(deps.Manager)
	svc := application.NewService(repo, deps.Stats, deps.Logger)

	userHandler := handlers.NewUserHandler(svc, deps.Logger, deps.Cfg.IsDevelopment())
	healthHandler := handlers.NewHealthHandler(deps.Manager)

	r.Add(modules.NewUserModule(userHandler))
	r.Add(modules.NewHealthModule(healthHandler))
}
