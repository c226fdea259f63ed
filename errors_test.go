package collabauth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthErrorWrapsSentinel(t *testing.T) {
	err := invalidCredentials()
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid password. Please try again.", err.Error())

	var aerr *AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ErrCodeInvalidCreds, aerr.Code)
	assert.Equal(t, "password", aerr.Field)
}

func TestAuthErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("backend local: %w", userNotFound())
	assert.ErrorIs(t, err, ErrUserNotFound)

	var aerr *AuthError
	assert.True(t, errors.As(err, &aerr))
	assert.Equal(t, ErrCodeUserNotFound, aerr.Code)
}

func TestDuplicateEmailErrorMessage(t *testing.T) {
	err := NewDuplicateEmailError("maria@mit.edu")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, "User with email maria@mit.edu already exists", err.Error())
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Violations: []string{"First name is required", "Last name is required"}}
	assert.Equal(t, "validation failed: First name is required; Last name is required", err.Error())
}
