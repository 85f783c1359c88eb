package encrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePasswordStrength(t *testing.T) {
	assert.NoError(t, ValidatePasswordStrength("Secret#pw1"))

	assert.Error(t, ValidatePasswordStrength("S#1a"))
	assert.Error(t, ValidatePasswordStrength("secret#pw1"))
	assert.Error(t, ValidatePasswordStrength("Secret#pwx"))

	err := ValidatePasswordStrength("Secretpw1")
	assert.Error(t, err)
	assert.Equal(t, "password must contain at least one special character (!@#$%^&*)", err.Error())
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Secret#pw1")
	assert.NoError(t, err)
	assert.NotEqual(t, "Secret#pw1", hash)

	assert.NoError(t, CheckPassword(hash, "Secret#pw1"))
	assert.ErrorIs(t, CheckPassword(hash, "Wrong#pw1"), ErrPasswordMismatch)
}
