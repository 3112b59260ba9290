package application

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Intentionally loose: anything shaped like local@domain.tld passes.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// validate is the module-wide validator. Field names in errors come from the
// JSON tags so message lookup matches the wire format.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("correo", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// CreateUserInput carries the fields accepted on creation. Activo and
// fecha_registro are never taken from the client.
type CreateUserInput struct {
	Nombre          string `json:"nombre" validate:"required,min=2,max=100"`
	Email           string `json:"email" validate:"required,correo"`
	Password        string `json:"password" validate:"required,min=6,max=255"`
	Telefono        string `json:"telefono" validate:"omitempty,max=20"`
	FechaNacimiento string `json:"fecha_nacimiento" validate:"omitempty,datetime=2006-01-02"`
	Rol             string `json:"rol" validate:"omitempty,oneof=admin usuario moderador"`
}

// UpdateUserInput carries a partial update; nil pointers mean "not present".
// omitnil (not omitempty) keeps explicit empty strings subject to the rules.
type UpdateUserInput struct {
	Nombre          *string `json:"nombre" validate:"omitnil,min=2,max=100"`
	Email           *string `json:"email" validate:"omitnil,correo"`
	Password        *string `json:"password" validate:"omitnil,min=6,max=255"`
	Telefono        *string `json:"telefono" validate:"omitnil,max=20"`
	FechaNacimiento *string `json:"fecha_nacimiento" validate:"omitnil,datetime=2006-01-02"`
	Rol             *string `json:"rol" validate:"omitnil,oneof=admin usuario moderador"`
	Activo          *bool   `json:"activo"`
}

func validateStruct(s any) *ValidationError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Messages: []string{err.Error()}}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe.Field()))
	}
	return &ValidationError{Messages: msgs}
}

// fieldMessage maps a violated field to its Spanish message. One message per
// field regardless of which rule tripped, mirroring the historical wording.
func fieldMessage(field string) string {
	switch field {
	case "nombre":
		return "El nombre debe tener al menos 2 caracteres"
	case "email":
		return "El email debe ser válido"
	case "password":
		return "La contraseña debe tener al menos 6 caracteres"
	case "telefono":
		return "El teléfono no puede tener más de 20 caracteres"
	case "rol":
		return "El rol debe ser: admin, usuario o moderador"
	case "fecha_nacimiento":
		return "La fecha de nacimiento debe ser válida"
	}
	return "El campo " + field + " es inválido"
}

// isValidEmail re-checks the email shape outside of struct validation.
func isValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
