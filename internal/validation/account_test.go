package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("ada@example.com"))
	assert.True(t, ValidEmail("ADA@Example.COM"))
	assert.False(t, ValidEmail("ada@example"))
	assert.False(t, ValidEmail("ada example@x.com"))
	assert.False(t, ValidEmail(""))
}

func TestValidPassword(t *testing.T) {
	assert.False(t, ValidPassword("12345"))
	assert.True(t, ValidPassword("123456"))
}

func TestPasswordFitsHash(t *testing.T) {
	assert.True(t, PasswordFitsHash(strings.Repeat("a", MaxPasswordBytes)))
	assert.False(t, PasswordFitsHash(strings.Repeat("a", MaxPasswordBytes+1)))
	// 25 three-byte runes are 75 bytes.
	assert.False(t, PasswordFitsHash(strings.Repeat("€", 25)))
}

func TestValidCity(t *testing.T) {
	tests := map[string]bool{
		"London":         true,
		" New York ":     true,
		"Stratford-upon": true,
		"X":              false,
		"Area51":         false,
		"Zürich":         false,
		"":               false,
	}
	for city, want := range tests {
		assert.Equal(t, want, ValidCity(city), city)
	}
}

type registration struct {
	Email    string `validate:"account_email"`
	Password string `validate:"account_password,password_bytes"`
	City     string `validate:"city"`
	Theme    string `validate:"oneof=dark light"`
}

func TestStruct(t *testing.T) {
	ok := registration{Email: "ada@example.com", Password: "secret", City: "London", Theme: "dark"}
	assert.NoError(t, Struct(ok))

	bad := ok
	bad.Email = "nope"
	assert.ErrorIs(t, Struct(bad), ErrInvalidEmail)

	bad = ok
	bad.Password = "abc"
	assert.ErrorIs(t, Struct(bad), ErrPasswordTooWeak)

	bad = ok
	bad.Password = strings.Repeat("x", MaxPasswordBytes+1)
	assert.ErrorIs(t, Struct(bad), ErrPasswordTooLong)

	bad = ok
	bad.City = "1"
	assert.ErrorIs(t, Struct(bad), ErrInvalidCity)

	bad = ok
	bad.Theme = "blue"
	assert.EqualError(t, Struct(bad), "theme is invalid")
}
