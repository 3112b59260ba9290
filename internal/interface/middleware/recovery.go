package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bossbudget/usuarios-api/pkg/response"
)

// Recovery converts panics into an enveloped 500. The panic value is always
// logged; it only reaches the response body in development mode.
func Recovery(logger *logrus.Logger, devMode bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logrus.Fields{
			"panic":      fmt.Sprintf("%v", recovered),
			"request_id": c.GetString("request_id"),
		}).Error("panic recuperado")

		if devMode {
			response.ErrorDetail(c, http.StatusInternalServerError,
				"Error interno del servidor", fmt.Sprintf("%v", recovered))
			return
		}
		response.Error(c, http.StatusInternalServerError, "Error interno del servidor")
	})
}
