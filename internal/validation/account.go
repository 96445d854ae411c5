package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Password length bounds. bcrypt rejects input longer than 72 bytes.
const (
	MinPasswordLen   = 6
	MaxPasswordBytes = 72
)

var (
	ErrInvalidEmail    = errors.New("please enter a valid email address")
	ErrPasswordTooWeak = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes long")
	ErrInvalidCity     = errors.New("please enter a valid city name")
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cityPattern  = regexp.MustCompile(`^[a-zA-Z\s-]{2,}$`)
)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.ToLower(email))
}

func ValidPassword(password string) bool {
	return len(password) >= MinPasswordLen
}

// PasswordFitsHash reports whether bcrypt can hash password.
func PasswordFitsHash(password string) bool {
	return len(password) <= MaxPasswordBytes
}

// ValidCity allows ASCII letters, whitespace and hyphens, at least two characters after trimming.
func ValidCity(city string) bool {
	return cityPattern.MatchString(strings.TrimSpace(city))
}

var (
	once sync.Once
	v    *validator.Validate
)

// Validator returns the shared validator with the account tags registered:
// "account_email", "account_password", "password_bytes" and "city".
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("account_email", func(fl validator.FieldLevel) bool {
			return ValidEmail(fl.Field().String())
		})
		_ = v.RegisterValidation("account_password", func(fl validator.FieldLevel) bool {
			return ValidPassword(fl.Field().String())
		})
		_ = v.RegisterValidation("password_bytes", func(fl validator.FieldLevel) bool {
			return PasswordFitsHash(fl.Field().String())
		})
		_ = v.RegisterValidation("city", func(fl validator.FieldLevel) bool {
			return ValidCity(fl.Field().String())
		})
	})
	return v
}

// Struct validates s and maps the first failing account tag to its sentinel error.
// Other failures are returned as "<field> is invalid".
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "account_email", "email":
		return ErrInvalidEmail
	case "account_password":
		return ErrPasswordTooWeak
	case "password_bytes":
		return ErrPasswordTooLong
	case "city":
		return ErrInvalidCity
	}
	return fmt.Errorf("%s is invalid", strings.ToLower(fe.Field()))
}
