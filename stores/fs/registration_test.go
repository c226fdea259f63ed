package fs

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohub/collabauth"
)

func validRegistration() *collabauth.UserRecord {
	return &collabauth.UserRecord{
		Email:    "lena.keller@ethz.ch",
		Password: "alpine-secret",
		PersonalInfo: collabauth.PersonalInfo{
			FirstName: "Lena",
			LastName:  "Keller",
		},
		AcademicInfo: collabauth.AcademicInfo{
			University: "ETH Zurich",
			Department: "Computer Science",
		},
	}
}

func newRegStore(t *testing.T) *RegistrationStore {
	t.Helper()
	store, err := NewRegistrationStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func TestRegisterAndFind(t *testing.T) {
	store := newRegStore(t)
	ctx := context.Background()

	stored, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Empty(t, stored.Password, "Register returns a sanitized record")
	assert.Equal(t, collabauth.RegistrationPassword, stored.Metadata.RegistrationMethod)
	assert.NotEmpty(t, stored.Metadata.CreatedAt)

	found, err := store.FindByEmail(ctx, "LENA.KELLER@ethz.ch")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.NotEmpty(t, found.Password, "lookup keeps the hash for verification")
	assert.NotEqual(t, "alpine-secret", found.Password, "password is stored hashed")
	assert.NoError(t, collabauth.VerifyPassword(found.Password, "alpine-secret"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newRegStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	dup := validRegistration()
	dup.Email = "Lena.Keller@ETHZ.CH"
	_, err = store.Register(ctx, dup)
	require.ErrorIs(t, err, collabauth.ErrDuplicateEmail)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "rejected registration writes nothing")
}

func TestRegisterValidation(t *testing.T) {
	store := newRegStore(t)

	bad := validRegistration()
	bad.Email = "not-an-email"
	bad.Password = "short"
	bad.AcademicInfo.University = ""

	_, err := store.Register(context.Background(), bad)
	var verr *collabauth.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "Valid email is required")
	assert.Contains(t, verr.Violations, "Password must be at least 6 characters")
	assert.Contains(t, verr.Violations, "University is required")

	files, err := os.ReadDir(store.root)
	require.NoError(t, err)
	for _, f := range files {
		assert.NotEqual(t, registryFile, f.Name(), "failed validation persists nothing")
	}
}

func TestFindByEmailUnknownIsNilNil(t *testing.T) {
	store := newRegStore(t)

	found, err := store.FindByEmail(context.Background(), "ghost@nowhere.edu")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestUpdate(t *testing.T) {
	store := newRegStore(t)
	ctx := context.Background()

	stored, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	newPassword := "brand-new-secret"
	updated, err := store.Update(ctx, stored.ID, &collabauth.UserPatch{
		Password: &newPassword,
		ProfileInfo: &collabauth.ProfileInfo{
			Bio:    "Distributed systems researcher",
			Skills: []string{"Go", "Raft"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Distributed systems researcher", updated.ProfileInfo.Bio)
	assert.Empty(t, updated.Password)

	found, err := store.FindByEmail(ctx, stored.Email)
	require.NoError(t, err)
	assert.NoError(t, collabauth.VerifyPassword(found.Password, newPassword))
	assert.Error(t, collabauth.VerifyPassword(found.Password, "alpine-secret"))
}

func TestUpdateUnknownID(t *testing.T) {
	store := newRegStore(t)

	_, err := store.Update(context.Background(), "user_missing", &collabauth.UserPatch{})
	require.ErrorIs(t, err, collabauth.ErrNotFound)
}

func TestUpdateEmailCollision(t *testing.T) {
	store := newRegStore(t)
	ctx := context.Background()

	first, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	second := validRegistration()
	second.Email = "kim@kaist.ac.kr"
	storedSecond, err := store.Register(ctx, second)
	require.NoError(t, err)

	taken := first.Email
	_, err = store.Update(ctx, storedSecond.ID, &collabauth.UserPatch{Email: &taken})
	require.ErrorIs(t, err, collabauth.ErrDuplicateEmail)
}

func TestRemove(t *testing.T) {
	store := newRegStore(t)
	ctx := context.Background()

	stored, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	removed, err := store.Remove(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, stored.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	found, err := store.FindByEmail(ctx, stored.Email)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRegistrationSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewRegistrationStore(dir, nil)
	require.NoError(t, err)
	stored, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	reopened, err := NewRegistrationStore(dir, nil)
	require.NoError(t, err)
	found, err := reopened.FindByEmail(ctx, stored.Email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, stored.ID, found.ID)
}

func TestAllSanitized(t *testing.T) {
	store := newRegStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)
	other := validRegistration()
	other.Email = "kim@kaist.ac.kr"
	_, err = store.Register(ctx, other)
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, u := range all {
		assert.Empty(t, u.Password)
	}
}
