package collabauth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserID(t *testing.T) {
	id := NewUserID()
	assert.Regexp(t, `^user_\d+_[0-9a-v]{20}$`, id)
	assert.NotEqual(t, id, NewUserID())
}

func TestFullName(t *testing.T) {
	u := &UserRecord{PersonalInfo: PersonalInfo{FirstName: "Maria", LastName: "Santos"}}
	assert.Equal(t, "Maria Santos", u.FullName())

	u.PersonalInfo.LastName = ""
	assert.Equal(t, "Maria", u.FullName())

	assert.Equal(t, "", (&UserRecord{}).FullName())
}

func TestSanitized(t *testing.T) {
	u := directoryUser()
	s := u.Sanitized()
	assert.Empty(t, s.Password)
	assert.Equal(t, "research2024", u.Password, "original is untouched")
	assert.Equal(t, u.ID, s.ID)
}

func TestTouchLastActive(t *testing.T) {
	u := &UserRecord{}
	u.TouchLastActive(time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("X", 3600)))
	assert.Equal(t, "2026-03-14T08:26:53Z", u.Metadata.LastActive)
}

func TestProfileListHelpers(t *testing.T) {
	p := &ProfileInfo{}
	p.AddSkill("Go")
	p.AddSkill("go")
	assert.Equal(t, []string{"Go"}, p.Skills, "duplicates are case-insensitive")

	p.AddSkill("Raft")
	p.RemoveSkill("GO")
	assert.Equal(t, []string{"Raft"}, p.Skills)

	a := &AcademicInfo{}
	a.AddResearchArea("Distributed Systems")
	a.AddResearchArea("distributed systems")
	assert.Len(t, a.ResearchAreas, 1)
}

func TestUserPatchApply(t *testing.T) {
	u := directoryUser()
	newEmail := "maria@new.edu"
	patch := &UserPatch{
		Email: &newEmail,
		ProfileInfo: &ProfileInfo{
			Bio: "Robotics researcher",
		},
	}
	patch.Apply(u)

	assert.Equal(t, "maria@new.edu", u.Email)
	assert.Equal(t, "Robotics researcher", u.ProfileInfo.Bio)
	assert.Equal(t, "MIT", u.AcademicInfo.University, "nil sections are untouched")
	assert.Equal(t, "research2024", u.Password, "Apply never touches the password")
}

func TestUserRecordJSONShape(t *testing.T) {
	u := directoryUser()
	data, err := json.Marshal(u)
	require.NoError(t, err)
	for _, key := range []string{
		`"personalInfo"`, `"academicInfo"`, `"profileInfo"`,
		`"accountSettings"`, `"isVerified"`, `"firstName"`,
	} {
		assert.Contains(t, string(data), key)
	}
}
