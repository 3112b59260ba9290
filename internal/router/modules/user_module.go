package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/bossbudget/usuarios-api/internal/interface/http"
)

// UserModule wires the user CRUD and authentication routes under /users.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.List)
		users.GET("/stats", m.Handler.Stats)
		users.GET("/:id", m.Handler.GetByID)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
		users.DELETE("/:id/permanent", m.Handler.Destroy)
		users.PATCH("/:id/toggle-status", m.Handler.ToggleStatus)
		users.POST("/authenticate", m.Handler.Authenticate)
	}
}
