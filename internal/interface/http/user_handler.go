package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bossbudget/usuarios-api/internal/application"
	"github.com/bossbudget/usuarios-api/internal/domain/entity"
	"github.com/bossbudget/usuarios-api/internal/infrastructure/database"
	"github.com/bossbudget/usuarios-api/pkg/response"
)

// UserService is the application surface the handler needs; narrowed to an
// interface so tests can substitute a fake.
type UserService interface {
	Create(ctx context.Context, in application.CreateUserInput) (*entity.User, error)
	List(ctx context.Context, opts application.ListOptions) ([]entity.User, int64, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, id string, in application.UpdateUserInput) (*entity.User, error)
	Delete(ctx context.Context, id string) (string, error)
	Destroy(ctx context.Context, id string) (string, error)
	ToggleStatus(ctx context.Context, id string) (*entity.User, string, error)
	Stats(ctx context.Context) (*entity.UserStats, error)
	Authenticate(ctx context.Context, email, password string) (*entity.User, error)
}

// UserHandler maps HTTP requests onto the user service and domain errors
// onto status codes.
type UserHandler struct {
	Svc     UserService
	Logger  *logrus.Logger
	DevMode bool
}

func NewUserHandler(svc UserService, logger *logrus.Logger, devMode bool) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger, DevMode: devMode}
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var in application.CreateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "Cuerpo de la petición inválido")
		return
	}
	u, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Usuario creado correctamente", u)
}

func (h *UserHandler) List(c *gin.Context) {
	opts := application.ListOptions{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 10),
		Search: c.Query("search"),
		Rol:    c.Query("rol"),
		Activo: c.Query("activo"),
	}

	users, total, err := h.Svc.List(c.Request.Context(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.SuccessPage(c, http.StatusOK, "Usuarios obtenidos correctamente", users,
		response.NewPagination(total, opts.Page, opts.Limit))
}

func (h *UserHandler) GetByID(c *gin.Context) {
	u, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Usuario obtenido correctamente", u)
}

func (h *UserHandler) Update(c *gin.Context) {
	var in application.UpdateUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "Cuerpo de la petición inválido")
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Usuario actualizado correctamente", u)
}

func (h *UserHandler) Delete(c *gin.Context) {
	msg, err := h.Svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, msg, nil)
}

func (h *UserHandler) Destroy(c *gin.Context) {
	msg, err := h.Svc.Destroy(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, msg, nil)
}

func (h *UserHandler) ToggleStatus(c *gin.Context) {
	u, msg, err := h.Svc.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, msg, u)
}

func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Estadísticas obtenidas correctamente", stats)
}

func (h *UserHandler) Authenticate(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Cuerpo de la petición inválido")
		return
	}
	u, err := h.Svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Autenticación exitosa", u)
}

// respondError translates the closed set of domain error tags to HTTP
// status codes. Unexpected errors become a 500 whose detail is only exposed
// in development mode.
func (h *UserHandler) respondError(c *gin.Context, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, application.ErrInvalidID):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrEmailTaken):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrMissingCredentials),
		errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrInactiveUser):
		response.Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, database.ErrNotReady), errors.Is(err, database.ErrNotConnected):
		h.Logger.WithError(err).Error("almacenamiento no disponible")
		response.Error(c, http.StatusServiceUnavailable, "Base de datos no disponible")
	default:
		h.Logger.WithError(err).Error("error no manejado")
		if h.DevMode {
			response.ErrorDetail(c, http.StatusInternalServerError, "Error interno del servidor", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "Error interno del servidor")
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
