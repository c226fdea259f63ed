package collabauth

import "strings"

// MinPasswordLength is the minimum accepted password length for local
// registration.
const MinPasswordLength = 6

// ValidateRegistration checks a registration payload and returns the full
// list of human-readable violations. It is pure and synchronous; an empty
// result means the payload is acceptable. The record's Password field must
// still hold the plaintext at this point.
func ValidateRegistration(u *UserRecord) []string {
	var violations []string

	if u.Email == "" || !strings.Contains(u.Email, "@") {
		violations = append(violations, "Valid email is required")
	}
	if len(u.Password) < MinPasswordLength {
		violations = append(violations, "Password must be at least 6 characters")
	}
	if u.PersonalInfo.FirstName == "" {
		violations = append(violations, "First name is required")
	}
	if u.PersonalInfo.LastName == "" {
		violations = append(violations, "Last name is required")
	}
	if u.AcademicInfo.University == "" {
		violations = append(violations, "University is required")
	}
	if u.AcademicInfo.Department == "" {
		violations = append(violations, "Department is required")
	}

	return violations
}
