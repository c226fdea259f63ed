package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohub/collabauth"
)

func newStore(t *testing.T) *RegistrationStore {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "collab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRegistrationStore(db, nil)
}

func validRegistration() *collabauth.UserRecord {
	return &collabauth.UserRecord{
		Email:    "kim.minjun@kaist.ac.kr",
		Password: "daejeon-secret",
		PersonalInfo: collabauth.PersonalInfo{
			FirstName: "Minjun",
			LastName:  "Kim",
		},
		AcademicInfo: collabauth.AcademicInfo{
			University: "KAIST",
			Department: "Electrical Engineering",
		},
	}
}

func TestRegisterAndFind(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stored, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Empty(t, stored.Password)

	found, err := store.FindByEmail(ctx, "KIM.MINJUN@kaist.ac.kr")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, stored.ID, found.ID)
	assert.NoError(t, collabauth.VerifyPassword(found.Password, "daejeon-secret"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	dup := validRegistration()
	dup.Email = "Kim.Minjun@KAIST.AC.KR"
	_, err = store.Register(ctx, dup)
	require.ErrorIs(t, err, collabauth.ErrDuplicateEmail)
}

func TestRegisterValidation(t *testing.T) {
	store := newStore(t)

	bad := validRegistration()
	bad.Password = "short"
	_, err := store.Register(context.Background(), bad)

	var verr *collabauth.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "Password must be at least 6 characters")
}

func TestFindByEmailUnknown(t *testing.T) {
	store := newStore(t)

	found, err := store.FindByEmail(context.Background(), "ghost@nowhere.edu")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestUpdate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stored, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	newPassword := "fresh-secret"
	updated, err := store.Update(ctx, stored.ID, &collabauth.UserPatch{
		Password: &newPassword,
		AcademicInfo: &collabauth.AcademicInfo{
			University: "KAIST",
			Department: "Computer Science",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", updated.AcademicInfo.Department)

	found, err := store.FindByEmail(ctx, stored.Email)
	require.NoError(t, err)
	assert.NoError(t, collabauth.VerifyPassword(found.Password, newPassword))
}

func TestUpdateUnknownID(t *testing.T) {
	store := newStore(t)

	_, err := store.Update(context.Background(), "user_missing", &collabauth.UserPatch{})
	require.ErrorIs(t, err, collabauth.ErrNotFound)
}

func TestUpdateEmailCollision(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	second := validRegistration()
	second.Email = "other@kaist.ac.kr"
	storedSecond, err := store.Register(ctx, second)
	require.NoError(t, err)

	taken := first.Email
	_, err = store.Update(ctx, storedSecond.ID, &collabauth.UserPatch{Email: &taken})
	require.ErrorIs(t, err, collabauth.ErrDuplicateEmail)
}

func TestRemove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stored, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)

	removed, err := store.Remove(ctx, stored.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Remove(ctx, stored.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestAll(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Register(ctx, validRegistration())
	require.NoError(t, err)
	second := validRegistration()
	second.Email = "other@kaist.ac.kr"
	_, err = store.Register(ctx, second)
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, u := range all {
		assert.Empty(t, u.Password)
	}
}
