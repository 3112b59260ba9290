package application

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bossbudget/usuarios-api/internal/cache"
	"github.com/bossbudget/usuarios-api/internal/domain/entity"
	"github.com/bossbudget/usuarios-api/internal/domain/repository"
	"github.com/bossbudget/usuarios-api/pkg/helpers"
)

// Service holds the user domain logic: validation, uniqueness checks,
// password hashing, and orchestration of repository calls.
type Service struct {
	repo   repository.UserRepository
	stats  *cache.StatsCache
	logger *logrus.Logger
}

func NewService(repo repository.UserRepository, stats *cache.StatsCache, logger *logrus.Logger) *Service {
	return &Service{repo: repo, stats: stats, logger: logger}
}

// ListOptions are the raw listing parameters as they arrive from the query
// string. Activo is kept as a string so "" means "no filter".
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Rol    string
	Activo string
}

// parseID accepts any non-negative integer; 0 parses fine and resolves to
// not-found like any other absent id.
func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, ErrInvalidID
	}
	return uint(id), nil
}

// Create validates the input, rejects duplicate emails (any status), hashes
// the password, and persists the user as active.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	in.Nombre = strings.TrimSpace(in.Nombre)
	if verr := validateStruct(&in); verr != nil {
		return nil, verr
	}

	// Advisory pre-check; the unique index is the real guarantee.
	exists, err := s.repo.EmailExists(ctx, in.Email, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Nombre:        in.Nombre,
		Email:         in.Email,
		Password:      hash,
		Telefono:      in.Telefono,
		Rol:           in.Rol,
		Activo:        true,
		FechaRegistro: time.Now(),
	}
	if u.Rol == "" {
		u.Rol = entity.RolUsuario
	}
	if in.FechaNacimiento != "" {
		d, err := entity.ParseDateOnly(in.FechaNacimiento)
		if err != nil {
			return nil, &ValidationError{Messages: []string{fieldMessage("fecha_nacimiento")}}
		}
		u.FechaNacimiento = &d
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.invalidateStats(ctx)
	s.logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email}).Info("usuario creado")
	return u, nil
}

// List returns a page of users ordered by registration date descending,
// plus the total row count for the applied filters.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]entity.User, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}

	filter := repository.ListFilter{Rol: opts.Rol, Search: opts.Search}
	if opts.Activo != "" {
		activo := opts.Activo == "true"
		filter.Activo = &activo
	}

	page := repository.ListPage{
		Limit:  opts.Limit,
		Offset: (opts.Page - 1) * opts.Limit,
	}
	return s.repo.FindAll(ctx, filter, page)
}

// GetByID fetches a single user; soft-deleted rows are still returned.
func (s *Service) GetByID(ctx context.Context, rawID string) (*entity.User, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

// GetByEmail fetches a user by email after a shape check. Absence is not an
// error here: callers receive nil when no row matches.
func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	return s.repo.FindByEmail(ctx, email)
}

// Update applies a partial update. Validation only covers fields that are
// present; the email uniqueness check excludes the user's own row.
func (s *Service) Update(ctx context.Context, rawID string, in UpdateUserInput) (*entity.User, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	if in.Nombre != nil {
		trimmed := strings.TrimSpace(*in.Nombre)
		in.Nombre = &trimmed
	}
	if verr := validateStruct(&in); verr != nil {
		return nil, verr
	}

	if in.Email != nil {
		taken, err := s.repo.EmailExists(ctx, *in.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrEmailTaken
		}
	}

	fields := map[string]any{}
	if in.Nombre != nil {
		fields["nombre"] = *in.Nombre
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Password != nil {
		hash, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
	}
	if in.Telefono != nil {
		fields["telefono"] = *in.Telefono
	}
	if in.FechaNacimiento != nil {
		d, err := entity.ParseDateOnly(*in.FechaNacimiento)
		if err != nil {
			return nil, &ValidationError{Messages: []string{fieldMessage("fecha_nacimiento")}}
		}
		fields["fecha_nacimiento"] = d
	}
	if in.Rol != nil {
		fields["rol"] = *in.Rol
	}
	if in.Activo != nil {
		fields["activo"] = *in.Activo
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.invalidateStats(ctx)
	return updated, nil
}

// Delete deactivates a user without removing the row.
func (s *Service) Delete(ctx context.Context, rawID string) (string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return "", err
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", ErrNotFound
	}

	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("No se pudo eliminar el usuario")
	}

	s.invalidateStats(ctx)
	return "Usuario eliminado correctamente", nil
}

// Destroy removes the row permanently. Only a syntactically valid id is
// required; a missing row surfaces as a plain failure rather than a
// not-found.
func (s *Service) Destroy(ctx context.Context, rawID string) (string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return "", err
	}

	ok, err := s.repo.Destroy(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("No se pudo eliminar el usuario permanentemente")
	}

	s.invalidateStats(ctx)
	return "Usuario eliminado permanentemente", nil
}

// ToggleStatus flips the active flag and returns the refreshed user plus a
// human-readable status message.
func (s *Service) ToggleStatus(ctx context.Context, rawID string) (*entity.User, string, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, "", err
	}

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", ErrNotFound
	}

	newStatus := !u.Activo
	updated, err := s.repo.Update(ctx, id, map[string]any{"activo": newStatus})
	if err != nil {
		return nil, "", err
	}
	if updated == nil {
		return nil, "", ErrNotFound
	}

	msg := "Usuario desactivado correctamente"
	if newStatus {
		msg = "Usuario activado correctamente"
	}
	s.invalidateStats(ctx)
	return updated, msg, nil
}

// Stats returns the aggregate counts, served from cache when fresh.
func (s *Service) Stats(ctx context.Context) (*entity.UserStats, error) {
	cached, err := s.stats.Get(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("no se pudo leer el cache de estadísticas")
	}
	if cached != nil {
		return cached, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.stats.Set(ctx, stats); err != nil {
		s.logger.WithError(err).Warn("no se pudo escribir el cache de estadísticas")
	}
	return stats, nil
}

// Authenticate verifies credentials. Unknown email and wrong password fail
// with the same error so the two cases are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if !u.Activo {
		return nil, ErrInactiveUser
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.repo.UpdateLastActivity(ctx, u.ID); err != nil {
		s.logger.WithError(err).WithField("id", u.ID).Warn("no se pudo actualizar la última actividad")
	} else {
		now := time.Now()
		u.UltimaActividad = &now
	}
	return u, nil
}

func (s *Service) invalidateStats(ctx context.Context) {
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.WithError(err).Warn("no se pudo invalidar el cache de estadísticas")
	}
}
