package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/bossbudget/usuarios-api/internal/interface/http"
)

// HealthModule exposes the liveness probe and the root welcome route.
type HealthModule struct {
	Handler *handlers.HealthHandler
}

func NewHealthModule(h *handlers.HealthHandler) *HealthModule {
	return &HealthModule{Handler: h}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Handler.Health)
	rg.GET("/", m.Handler.Root)
}
