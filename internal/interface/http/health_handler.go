package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bossbudget/usuarios-api/internal/infrastructure/database"
)

// HealthChecker is implemented by the database manager.
type HealthChecker interface {
	HealthCheck(ctx context.Context) database.Health
}

type HealthHandler struct {
	DB HealthChecker
}

func NewHealthHandler(db HealthChecker) *HealthHandler {
	return &HealthHandler{DB: db}
}

// Health reports API liveness plus the storage probe. The database record
// sits beside the envelope fields rather than under data, matching the
// historical shape.
func (h *HealthHandler) Health(c *gin.Context) {
	health := h.DB.HealthCheck(c.Request.Context())
	if health.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "error",
			"message":  "Problemas con la base de datos",
			"database": health,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "success",
		"message":  "API funcionando correctamente",
		"database": health,
	})
}

// Root serves a small welcome payload naming the available endpoints.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Bienvenido a la API de Gestión de Usuarios",
		"version": "1.0.0",
		"endpoints": gin.H{
			"usuarios": "/users",
			"health":   "/health",
		},
	})
}
