package collabauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRegistration(t *testing.T) {
	valid := &UserRecord{
		Email:    "lena.keller@ethz.ch",
		Password: "alpine-secret",
		PersonalInfo: PersonalInfo{
			FirstName: "Lena",
			LastName:  "Keller",
		},
		AcademicInfo: AcademicInfo{
			University: "ETH Zurich",
			Department: "Computer Science",
		},
	}
	assert.Empty(t, ValidateRegistration(valid))

	empty := &UserRecord{}
	violations := ValidateRegistration(empty)
	assert.ElementsMatch(t, []string{
		"Valid email is required",
		"Password must be at least 6 characters",
		"First name is required",
		"Last name is required",
		"University is required",
		"Department is required",
	}, violations)
}

func TestValidateRegistrationEmailNeedsAtSign(t *testing.T) {
	u := &UserRecord{
		Email:    "not-an-email",
		Password: "long-enough",
		PersonalInfo: PersonalInfo{
			FirstName: "A",
			LastName:  "B",
		},
		AcademicInfo: AcademicInfo{University: "U", Department: "D"},
	}
	assert.Equal(t, []string{"Valid email is required"}, ValidateRegistration(u))
}

func TestValidateRegistrationPasswordBoundary(t *testing.T) {
	u := &UserRecord{
		Email:    "a@b.edu",
		Password: "12345",
		PersonalInfo: PersonalInfo{
			FirstName: "A",
			LastName:  "B",
		},
		AcademicInfo: AcademicInfo{University: "U", Department: "D"},
	}
	assert.Equal(t, []string{"Password must be at least 6 characters"}, ValidateRegistration(u))

	u.Password = "123456"
	assert.Empty(t, ValidateRegistration(u))
}
