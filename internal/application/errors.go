package application

import (
	"errors"
	"strings"
)

// Closed set of domain error tags. The HTTP boundary matches these with
// errors.Is/errors.As; no status is ever derived from message content.
var (
	ErrEmailTaken         = errors.New("Ya existe un usuario con este email")
	ErrNotFound           = errors.New("Usuario no encontrado")
	ErrInvalidID          = errors.New("ID de usuario inválido")
	ErrInvalidEmail       = errors.New("Email inválido")
	ErrMissingCredentials = errors.New("Email y contraseña son requeridos")
	ErrInvalidCredentials = errors.New("Credenciales inválidas")
	ErrInactiveUser       = errors.New("Usuario inactivo")
)

// ValidationError aggregates every violated rule from one request so the
// client sees all problems at once.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "Datos inválidos: " + strings.Join(e.Messages, ", ")
}
