package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bossbudget/usuarios-api/internal/domain/entity"
	"github.com/bossbudget/usuarios-api/internal/domain/repository"
)

// GormUserRepository implements repository.UserRepository on top of the
// managed connection. Every operation first awaits bootstrap readiness,
// which is a cheap channel receive once the manager is up.
type GormUserRepository struct {
	m *Manager
}

func NewUserRepository(m *Manager) *GormUserRepository {
	return &GormUserRepository{m: m}
}

func (r *GormUserRepository) session(ctx context.Context) (*gorm.DB, error) {
	if err := r.m.AwaitReady(ctx); err != nil {
		return nil, err
	}
	db, err := r.m.DB()
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

func (r *GormUserRepository) Create(ctx context.Context, u *entity.User) error {
	db, err := r.session(ctx)
	if err != nil {
		return err
	}
	if err := db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *GormUserRepository) FindAll(ctx context.Context, filter repository.ListFilter, page repository.ListPage) ([]entity.User, int64, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, 0, err
	}

	q := db.Model(&entity.User{})
	if filter.Rol != "" {
		q = q.Where("rol = ?", filter.Rol)
	}
	if filter.Activo != nil {
		q = q.Where("activo = ?", *filter.Activo)
	}
	// filter.Search is intentionally not applied; name search is disabled.

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []entity.User{}
	q = q.Order("fecha_registro DESC")
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	u := &entity.User{}
	if err := db.First(u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	u := &entity.User{}
	if err := db.Where("email = ?", email).First(u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *GormUserRepository) Update(ctx context.Context, id uint, fields map[string]any) (*entity.User, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}
	res := db.Model(&entity.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, repository.ErrDuplicateEmail
		}
		return nil, res.Error
	}
	// RowsAffected can be zero for a no-op update, so resolve absence by
	// re-fetching rather than trusting the count.
	return r.FindByID(ctx, id)
}

func (r *GormUserRepository) Delete(ctx context.Context, id uint) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	res := db.Model(&entity.User{}).Where("id = ?", id).Update("activo", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormUserRepository) Destroy(ctx context.Context, id uint) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	res := db.Delete(&entity.User{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormUserRepository) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	q := db.Model(&entity.User{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormUserRepository) UpdateLastActivity(ctx context.Context, id uint) (bool, error) {
	db, err := r.session(ctx)
	if err != nil {
		return false, err
	}
	res := db.Model(&entity.User{}).Where("id = ?", id).Update("ultima_actividad", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormUserRepository) Stats(ctx context.Context) (*entity.UserStats, error) {
	db, err := r.session(ctx)
	if err != nil {
		return nil, err
	}

	stats := &entity.UserStats{PorRol: map[string]int64{}}
	if err := db.Model(&entity.User{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entity.User{}).Where("activo = ?", true).Count(&stats.Activos).Error; err != nil {
		return nil, err
	}
	stats.Inactivos = stats.Total - stats.Activos

	var rows []struct {
		Rol   string
		Count int64
	}
	err = db.Model(&entity.User{}).
		Select("rol, COUNT(id) AS count").
		Group("rol").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.PorRol[row.Rol] = row.Count
	}
	return stats, nil
}

var _ repository.UserRepository = (*GormUserRepository)(nil)
