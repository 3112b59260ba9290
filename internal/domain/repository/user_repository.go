package repository

import (
	"context"
	"errors"

	"github.com/bossbudget/usuarios-api/internal/domain/entity"
)

// ErrDuplicateEmail is returned by Create/Update when the email unique index
// rejects the row. The service layer pre-checks uniqueness for a friendly
// error, but the index is what closes the race between concurrent writes.
var ErrDuplicateEmail = errors.New("email duplicado")

// ListFilter narrows FindAll results. Search is accepted for API
// compatibility but name search is currently disabled and the value is
// ignored by implementations.
type ListFilter struct {
	Rol    string
	Activo *bool
	Search string
}

// ListPage bounds a FindAll result set.
type ListPage struct {
	Limit  int
	Offset int
}

// UserRepository defines the storage operations for user accounts.
// Lookups return (nil, nil) when no row matches; Update returns (nil, nil)
// when the target row disappeared between check and write.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindAll(ctx context.Context, filter ListFilter, page ListPage) ([]entity.User, int64, error)
	FindByID(ctx context.Context, id uint) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*entity.User, error)
	Delete(ctx context.Context, id uint) (bool, error)
	Destroy(ctx context.Context, id uint) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID uint) (bool, error)
	UpdateLastActivity(ctx context.Context, id uint) (bool, error)
	Stats(ctx context.Context) (*entity.UserStats, error)
}
