package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/bossbudget/usuarios-api/internal/domain/entity"
	"github.com/bossbudget/usuarios-api/internal/domain/repository"
	"github.com/bossbudget/usuarios-api/pkg/helpers"
)

// fakeRepo implements repository.UserRepository with overridable functions.

type fakeRepo struct {
	createFn             func(ctx context.Context, u *entity.User) error
	findAllFn            func(ctx context.Context, f repository.ListFilter, p repository.ListPage) ([]entity.User, int64, error)
	findByIDFn           func(ctx context.Context, id uint) (*entity.User, error)
	findByEmailFn        func(ctx context.Context, email string) (*entity.User, error)
	updateFn             func(ctx context.Context, id uint, fields map[string]any) (*entity.User, error)
	deleteFn             func(ctx context.Context, id uint) (bool, error)
	destroyFn            func(ctx context.Context, id uint) (bool, error)
	emailExistsFn        func(ctx context.Context, email string, excludeID uint) (bool, error)
	updateLastActivityFn func(ctx context.Context, id uint) (bool, error)
	statsFn              func(ctx context.Context) (*entity.UserStats, error)
}

func (f *fakeRepo) Create(ctx context.Context, u *entity.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	u.ID = 1
	return nil
}

func (f *fakeRepo) FindAll(ctx context.Context, filter repository.ListFilter, page repository.ListPage) ([]entity.User, int64, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx, filter, page)
	}
	return []entity.User{}, 0, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if f.findByEmailFn != nil {
		return f.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uint, fields map[string]any) (*entity.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, fields)
	}
	return &entity.User{ID: id}, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uint) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return true, nil
}

func (f *fakeRepo) Destroy(ctx context.Context, id uint) (bool, error) {
	if f.destroyFn != nil {
		return f.destroyFn(ctx, id)
	}
	return true, nil
}

func (f *fakeRepo) EmailExists(ctx context.Context, email string, excludeID uint) (bool, error) {
	if f.emailExistsFn != nil {
		return f.emailExistsFn(ctx, email, excludeID)
	}
	return false, nil
}

func (f *fakeRepo) UpdateLastActivity(ctx context.Context, id uint) (bool, error) {
	if f.updateLastActivityFn != nil {
		return f.updateLastActivityFn(ctx, id)
	}
	return true, nil
}

func (f *fakeRepo) Stats(ctx context.Context) (*entity.UserStats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx)
	}
	return &entity.UserStats{PorRol: map[string]int64{}}, nil
}

func newTestService(repo repository.UserRepository) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(repo, nil, logger)
}

func validCreateInput() CreateUserInput {
	return CreateUserInput{
		Nombre:   "Ana Gomez",
		Email:    "ana@x.com",
		Password: "secret1",
	}
}

func TestCreateHashesPasswordAndDefaults(t *testing.T) {
	var created *entity.User
	repo := &fakeRepo{
		createFn: func(_ context.Context, u *entity.User) error {
			u.ID = 1
			created = u
			return nil
		},
	}
	svc := newTestService(repo)

	u, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created == nil {
		t.Fatal("repository was never called")
	}
	if u.Password == "secret1" {
		t.Fatal("password stored in plain text")
	}
	if !helpers.CompareHashAndPassword(u.Password, "secret1") {
		t.Fatal("stored hash does not verify against original password")
	}
	if !u.Activo {
		t.Error("new user should be active")
	}
	if u.Rol != entity.RolUsuario {
		t.Errorf("rol = %q, want %q", u.Rol, entity.RolUsuario)
	}
	if u.FechaRegistro.IsZero() {
		t.Error("fecha_registro not set")
	}
}

func TestCreateCollectsAllValidationErrors(t *testing.T) {
	svc := newTestService(&fakeRepo{})

	_, err := svc.Create(context.Background(), CreateUserInput{
		Nombre:   "A",
		Email:    "sin-arroba",
		Password: "corto",
		Telefono: strings.Repeat("9", 25),
		Rol:      "superadmin",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Messages) != 5 {
		t.Fatalf("expected 5 aggregated messages, got %d: %v", len(verr.Messages), verr.Messages)
	}
	if !strings.HasPrefix(verr.Error(), "Datos inválidos: ") {
		t.Fatalf("unexpected error text: %s", verr.Error())
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := &fakeRepo{
		emailExistsFn: func(context.Context, string, uint) (bool, error) { return true, nil },
	}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), validCreateInput())
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateTranslatesStorageDuplicate(t *testing.T) {
	// The advisory pre-check passed but the unique index rejected the row,
	// as happens under concurrent creates with the same email.
	repo := &fakeRepo{
		createFn: func(context.Context, *entity.User) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), validCreateInput())
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateParsesBirthDate(t *testing.T) {
	var created *entity.User
	repo := &fakeRepo{
		createFn: func(_ context.Context, u *entity.User) error {
			created = u
			return nil
		},
	}
	svc := newTestService(repo)

	in := validCreateInput()
	in.FechaNacimiento = "1990-05-10"
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.FechaNacimiento == nil || created.FechaNacimiento.String() != "1990-05-10" {
		t.Fatalf("fecha_nacimiento = %v", created.FechaNacimiento)
	}
}

func TestUpdateInvalidID(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	_, err := svc.Update(context.Background(), "abc", UpdateUserInput{})
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	_, err := svc.Update(context.Background(), "99", UpdateUserInput{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEmailUniquenessExcludesOwnRow(t *testing.T) {
	var gotExclude uint
	repo := &fakeRepo{
		findByIDFn: func(_ context.Context, id uint) (*entity.User, error) {
			return &entity.User{ID: id, Email: "ana@x.com"}, nil
		},
		emailExistsFn: func(_ context.Context, _ string, excludeID uint) (bool, error) {
			gotExclude = excludeID
			return false, nil
		},
	}
	svc := newTestService(repo)

	email := "nueva@x.com"
	if _, err := svc.Update(context.Background(), "5", UpdateUserInput{Email: &email}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if gotExclude != 5 {
		t.Fatalf("EmailExists excludeID = %d, want 5", gotExclude)
	}
}

func TestUpdateRejectsEmailTakenByOther(t *testing.T) {
	repo := &fakeRepo{
		findByIDFn: func(_ context.Context, id uint) (*entity.User, error) {
			return &entity.User{ID: id}, nil
		},
		emailExistsFn: func(context.Context, string, uint) (bool, error) { return true, nil },
	}
	svc := newTestService(repo)

	email := "otro@x.com"
	_, err := svc.Update(context.Background(), "5", UpdateUserInput{Email: &email})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateValidatesPresentFieldsOnly(t *testing.T) {
	repo := &fakeRepo{
		findByIDFn: func(_ context.Context, id uint) (*entity.User, error) {
			return &entity.User{ID: id}, nil
		},
	}
	svc := newTestService(repo)

	// Only telefono present and only telefono invalid: no complaints about
	// the absent nombre/email/password.
	tel := strings.Repeat("9", 25)
	_, err := svc.Update(context.Background(), "5", UpdateUserInput{Telefono: &tel})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Messages) != 1 {
		t.Fatalf("expected 1 message, got %v", verr.Messages)
	}
}

func TestUpdateHashesNewPassword(t *testing.T) {
	var gotFields map[string]any
	repo := &fakeRepo{
		findByIDFn: func(_ context.Context, id uint) (*entity.User, error) {
			return &entity.User{ID: id}, nil
		},
		updateFn: func(_ context.Context, id uint, fields map[string]any) (*entity.User, error) {
			gotFields = fields
			return &entity.User{ID: id}, nil
		},
	}
	svc := newTestService(repo)

	pass := "nuevaclave"
	if _, err := svc.Update(context.Background(), "5", UpdateUserInput{Password: &pass}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	hash, ok := gotFields["password"].(string)
	if !ok || hash == pass {
		t.Fatalf("password not hashed before persisting: %v", gotFields["password"])
	}
	if !helpers.CompareHashAndPassword(hash, pass) {
		t.Fatal("persisted hash does not verify")
	}
}

func TestDeleteRequiresExistingRow(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	_, err := svc.Delete(context.Background(), "3")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDestroyOnlyNeedsValidID(t *testing.T) {
	svc := newTestService(&fakeRepo{
		destroyFn: func(context.Context, uint) (bool, error) { return false, nil },
	})

	if _, err := svc.Destroy(context.Background(), "x"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}

	// Missing row is a plain failure, not a not-found.
	_, err := svc.Destroy(context.Background(), "3")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected generic failure, got %v", err)
	}
}

func TestToggleStatusDoubleApplicationRestores(t *testing.T) {
	stored := &entity.User{ID: 4, Activo: true}
	repo := &fakeRepo{
		findByIDFn: func(context.Context, uint) (*entity.User, error) {
			copied := *stored
			return &copied, nil
		},
		updateFn: func(_ context.Context, _ uint, fields map[string]any) (*entity.User, error) {
			stored.Activo = fields["activo"].(bool)
			copied := *stored
			return &copied, nil
		},
	}
	svc := newTestService(repo)

	u, msg, err := svc.ToggleStatus(context.Background(), "4")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if u.Activo || msg != "Usuario desactivado correctamente" {
		t.Fatalf("first toggle: activo=%v msg=%q", u.Activo, msg)
	}

	u, msg, err = svc.ToggleStatus(context.Background(), "4")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if !u.Activo || msg != "Usuario activado correctamente" {
		t.Fatalf("second toggle: activo=%v msg=%q", u.Activo, msg)
	}
}

func TestListDefaultsAndFilters(t *testing.T) {
	var gotFilter repository.ListFilter
	var gotPage repository.ListPage
	repo := &fakeRepo{
		findAllFn: func(_ context.Context, f repository.ListFilter, p repository.ListPage) ([]entity.User, int64, error) {
			gotFilter, gotPage = f, p
			return []entity.User{}, 0, nil
		},
	}
	svc := newTestService(repo)

	if _, _, err := svc.List(context.Background(), ListOptions{Activo: "true", Rol: "admin"}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPage.Limit != 10 || gotPage.Offset != 0 {
		t.Errorf("default page = %+v, want limit 10 offset 0", gotPage)
	}
	if gotFilter.Rol != "admin" || gotFilter.Activo == nil || !*gotFilter.Activo {
		t.Errorf("filter = %+v", gotFilter)
	}

	if _, _, err := svc.List(context.Background(), ListOptions{Page: 2, Limit: 10}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPage.Offset != 10 {
		t.Errorf("page 2 offset = %d, want 10", gotPage.Offset)
	}
}

func TestAuthenticateUniformFailureMessage(t *testing.T) {
	hash, err := helpers.HashPassword("correcta")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	unknown := newTestService(&fakeRepo{})
	_, errUnknown := unknown.Authenticate(context.Background(), "nadie@x.com", "cualquiera")

	wrongPass := newTestService(&fakeRepo{
		findByEmailFn: func(context.Context, string) (*entity.User, error) {
			return &entity.User{ID: 1, Activo: true, Password: hash}, nil
		},
	})
	_, errWrong := wrongPass.Authenticate(context.Background(), "ana@x.com", "incorrecta")

	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("messages differ: %q vs %q", errUnknown.Error(), errWrong.Error())
	}
}

func TestAuthenticateInactiveUser(t *testing.T) {
	hash, _ := helpers.HashPassword("correcta")
	svc := newTestService(&fakeRepo{
		findByEmailFn: func(context.Context, string) (*entity.User, error) {
			return &entity.User{ID: 1, Activo: false, Password: hash}, nil
		},
	})

	_, err := svc.Authenticate(context.Background(), "ana@x.com", "correcta")
	if !errors.Is(err, ErrInactiveUser) {
		t.Fatalf("expected ErrInactiveUser, got %v", err)
	}
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	svc := newTestService(&fakeRepo{})
	for _, pair := range [][2]string{{"", "pass"}, {"ana@x.com", ""}, {"", ""}} {
		if _, err := svc.Authenticate(context.Background(), pair[0], pair[1]); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("Authenticate(%q, %q): expected ErrMissingCredentials, got %v", pair[0], pair[1], err)
		}
	}
}

func TestAuthenticateSuccessTouchesLastActivity(t *testing.T) {
	hash, _ := helpers.HashPassword("correcta")
	touched := false
	svc := newTestService(&fakeRepo{
		findByEmailFn: func(context.Context, string) (*entity.User, error) {
			return &entity.User{ID: 9, Activo: true, Password: hash}, nil
		},
		updateLastActivityFn: func(_ context.Context, id uint) (bool, error) {
			touched = id == 9
			return true, nil
		},
	})

	u, err := svc.Authenticate(context.Background(), "ana@x.com", "correcta")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !touched {
		t.Error("UpdateLastActivity not called")
	}
	if u.UltimaActividad == nil {
		t.Error("ultima_actividad not set on returned user")
	}
}

func TestGetByID(t *testing.T) {
	svc := newTestService(&fakeRepo{
		findByIDFn: func(_ context.Context, id uint) (*entity.User, error) {
			if id == 5 {
				return &entity.User{ID: 5, Activo: false}, nil
			}
			return nil, nil
		},
	})

	// Soft-deleted rows remain retrievable by id.
	u, err := svc.GetByID(context.Background(), "5")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Activo {
		t.Error("expected inactive user")
	}

	if _, err := svc.GetByID(context.Background(), "6"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), "-1"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	// Zero parses like any other id and simply misses.
	if _, err := svc.GetByID(context.Background(), "0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("id 0: expected ErrNotFound, got %v", err)
	}
}

func TestGetByEmailRejectsBadShape(t *testing.T) {
	svc := newTestService(&fakeRepo{
		findByEmailFn: func(context.Context, string) (*entity.User, error) {
			t.Fatal("repository reached with an invalid email")
			return nil, nil
		},
	})

	for _, email := range []string{"", "   ", "sin-arroba", "a@b"} {
		if _, err := svc.GetByEmail(context.Background(), email); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("%q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
}

func TestGetByEmail(t *testing.T) {
	svc := newTestService(&fakeRepo{
		findByEmailFn: func(_ context.Context, email string) (*entity.User, error) {
			if email == "ana@x.com" {
				return &entity.User{ID: 9, Email: email}, nil
			}
			return nil, nil
		},
	})

	u, err := svc.GetByEmail(context.Background(), " ana@x.com ")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u == nil || u.ID != 9 {
		t.Fatalf("got %+v", u)
	}

	// Absence is nil, not an error.
	u, err = svc.GetByEmail(context.Background(), "nadie@x.com")
	if err != nil {
		t.Fatalf("GetByEmail missing: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil for unknown email, got %+v", u)
	}
}
