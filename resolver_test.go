package collabauth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverFirstBackendDecides(t *testing.T) {
	reg := &memRegistrationStore{}
	_, err := reg.Register(context.Background(), &UserRecord{
		Email:    "maria.santos@mit.edu",
		Password: "local-secret",
		PersonalInfo: PersonalInfo{
			FirstName: "Maria",
			LastName:  "Santos",
		},
		AcademicInfo: AcademicInfo{University: "MIT", Department: "CS"},
	})
	require.NoError(t, err)

	r := NewResolver(
		&RegistrationBackend{Store: reg},
		&DirectoryBackend{Source: &memDirectory{users: []*UserRecord{directoryUser()}}},
	)

	user, err := r.Resolve(context.Background(), "maria.santos@mit.edu", "local-secret")
	require.NoError(t, err)
	assert.Empty(t, user.Password)

	// The directory also knows this email with password "research2024",
	// but the local backend answered first and its verdict stands.
	_, err = r.Resolve(context.Background(), "maria.santos@mit.edu", "research2024")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolverFallsThroughToLaterBackends(t *testing.T) {
	r := NewResolver(
		&RegistrationBackend{Store: &memRegistrationStore{}},
		&DirectoryBackend{Source: &memDirectory{users: []*UserRecord{directoryUser()}}},
	)

	user, err := r.Resolve(context.Background(), "maria.santos@mit.edu", "research2024")
	require.NoError(t, err)
	assert.Equal(t, "user_001", user.ID)
}

func TestResolverNoBackendKnowsEmail(t *testing.T) {
	r := NewResolver(
		&RegistrationBackend{Store: &memRegistrationStore{}},
		&DirectoryBackend{Source: &memDirectory{}},
	)

	_, err := r.Resolve(context.Background(), "ghost@nowhere.edu", "x")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestResolverBackendErrorPropagates(t *testing.T) {
	dirErr := errors.New("directory unavailable")
	r := NewResolver(
		&DirectoryBackend{Source: &memDirectory{err: dirErr}},
	)

	_, err := r.Resolve(context.Background(), "maria.santos@mit.edu", "research2024")
	require.ErrorIs(t, err, dirErr)
	assert.Contains(t, err.Error(), "backend directory")
}

func TestDirectoryBackendChecksVerificationFirst(t *testing.T) {
	unverified := directoryUser()
	unverified.AccountSettings.IsVerified = false
	b := &DirectoryBackend{}

	err := b.VerifyPassword(unverified, "wrong-password")
	require.ErrorIs(t, err, ErrUnverifiedAccount,
		"verification is rejected before the password is even looked at")

	err = b.VerifyPassword(unverified, "research2024")
	require.ErrorIs(t, err, ErrUnverifiedAccount)
}
