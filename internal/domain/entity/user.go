package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Roles permitted for a user account.
const (
	RolAdmin     = "admin"
	RolUsuario   = "usuario"
	RolModerador = "moderador"
)

// ValidRol reports whether rol is one of the permitted role values.
func ValidRol(rol string) bool {
	switch rol {
	case RolAdmin, RolUsuario, RolModerador:
		return true
	}
	return false
}

const dateOnlyLayout = "2006-01-02"

// DateOnly is a calendar date without time of day. It marshals to and from
// "YYYY-MM-DD" in JSON and maps to a DATE column.
type DateOnly struct {
	time.Time
}

// NewDateOnly truncates t to its calendar date in UTC.
func NewDateOnly(t time.Time) DateOnly {
	return DateOnly{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDateOnly parses a "YYYY-MM-DD" string.
func ParseDateOnly(s string) (DateOnly, error) {
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return DateOnly{}, err
	}
	return DateOnly{t}, nil
}

func (d DateOnly) String() string {
	return d.Format(dateOnlyLayout)
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDateOnly(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d DateOnly) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner. SQLite hands dates back as strings, MySQL as
// time.Time, so both forms are accepted.
func (d *DateOnly) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*d = DateOnly{}
		return nil
	case time.Time:
		*d = NewDateOnly(x)
		return nil
	case string:
		return d.scanString(x)
	case []byte:
		return d.scanString(string(x))
	}
	return fmt.Errorf("entity: cannot scan %T into DateOnly", v)
}

func (d *DateOnly) scanString(s string) error {
	if len(s) > len(dateOnlyLayout) {
		s = s[:len(dateOnlyLayout)]
	}
	parsed, err := ParseDateOnly(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// User is the persisted user account. The password field holds a bcrypt hash
// and is never serialized to JSON.
type User struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Nombre          string     `gorm:"size:100;not null" json:"nombre"`
	Email           string     `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Password        string     `gorm:"size:255;not null" json:"-"`
	Telefono        string     `gorm:"size:20" json:"telefono,omitempty"`
	FechaNacimiento *DateOnly  `gorm:"type:date" json:"fecha_nacimiento,omitempty"`
	Activo          bool       `gorm:"not null;default:true;index" json:"activo"`
	Rol             string     `gorm:"size:20;not null;default:usuario;index" json:"rol"`
	FechaRegistro   time.Time  `gorm:"not null" json:"fecha_registro"`
	UltimaActividad *time.Time `json:"ultima_actividad,omitempty"`
}

// TableName keeps the table name used by the existing schema.
func (User) TableName() string { return "usuarios" }

// IsActive reports whether the account is active (not soft-deleted).
func (u *User) IsActive() bool { return u.Activo }

// UserStats aggregates account counts. PorRol is always non-nil so an empty
// table serializes as {} rather than null.
type UserStats struct {
	Total     int64            `json:"total"`
	Activos   int64            `json:"activos"`
	Inactivos int64            `json:"inactivos"`
	PorRol    map[string]int64 `json:"porRol"`
}
