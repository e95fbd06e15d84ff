package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"gatekeeper/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxPasswordBytes is the bcrypt input limit. Bytes past it are ignored.
const MaxPasswordBytes = 72

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their JSON names.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return val
}

// Account is the input shared by self-registration, admin creation and the seeding CLI.
type Account struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,max=100"`
}

// Normalize trims the account fields and lower-cases the email.
func (a Account) Normalize() Account {
	return Account{
		Email:    Email(a.Email),
		Password: a.Password,
		Name:     strings.TrimSpace(a.Name),
	}
}

// Credentials is the login input.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// Struct checks s against its validate tags and returns a *domain.ValidationError
// with one message per failing field.
func Struct(s any) error {
	fields := map[string]string{}
	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; !seen {
				fields[fe.Field()] = message(fe)
			}
		}
	}
	if a, ok := s.(Account); ok && len(a.Password) > MaxPasswordBytes {
		fields["password"] = fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes)
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ID validates a user identifier.
func ID(s string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
