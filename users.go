package collabauth

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
)

// PersonalInfo holds a user's basic personal details. Values are free-text;
// no validation beyond presence is performed.
type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"dateOfBirth"`
}

// AcademicInfo describes a user's academic standing and research focus.
type AcademicInfo struct {
	University         string   `json:"university"`
	Department         string   `json:"department"`
	DegreeLevel        string   `json:"degreeLevel"` // "PhD", "Masters", "Postdoc", "Professor"
	YearOfStudy        int      `json:"yearOfStudy"`
	ExpectedGraduation string   `json:"expectedGraduation"`
	Advisor            string   `json:"advisor"`
	ResearchAreas      []string `json:"researchAreas"`
	CurrentGPA         float64  `json:"currentGPA"`
	Publications       int      `json:"publications"`
	Conferences        int      `json:"conferences"`
}

// ProfileInfo holds the collaboration-facing profile fields.
type ProfileInfo struct {
	Bio                      string   `json:"bio"`
	Skills                   []string `json:"skills"`
	Languages                []string `json:"languages"`
	Interests                []string `json:"interests"`
	Availability             string   `json:"availability"`
	CollaborationPreferences []string `json:"collaborationPreferences"`
}

// ContactInfo holds optional external profile links.
type ContactInfo struct {
	LinkedIn      string `json:"linkedIn,omitempty"`
	GitHub        string `json:"github,omitempty"`
	ORCID         string `json:"orcid,omitempty"`
	GoogleScholar string `json:"googleScholar,omitempty"`
	ResearchGate  string `json:"researchGate,omitempty"`
}

// NotificationPreferences are per-channel notification toggles.
type NotificationPreferences struct {
	Email                bool `json:"email"`
	Push                 bool `json:"push"`
	MatchNotifications   bool `json:"matchNotifications"`
	MessageNotifications bool `json:"messageNotifications"`
	EventNotifications   bool `json:"eventNotifications"`
}

// AccountSettings holds verification state and visibility preferences.
type AccountSettings struct {
	IsVerified              bool                    `json:"isVerified"`
	ProfileVisibility       string                  `json:"profileVisibility"`   // "public", "private", "limited"
	CollaborationStatus     string                  `json:"collaborationStatus"` // "open", "selective", "limited", "closed"
	NotificationPreferences NotificationPreferences `json:"notificationPreferences"`
}

// Registration methods recorded in UserMetadata.
const (
	RegistrationPassword = "password"
	RegistrationOAuth2   = "oauth2"
)

// UserMetadata holds bookkeeping fields maintained by the stores.
type UserMetadata struct {
	CreatedAt          string `json:"createdAt"`
	LastActive         string `json:"lastActive"`
	ProfileImageID     string `json:"profileImageId,omitempty"`
	Location           string `json:"location,omitempty"`
	Timezone           string `json:"timezone,omitempty"`
	RegistrationMethod string `json:"registrationMethod,omitempty"`
	LastLoginMethod    string `json:"lastLoginMethod,omitempty"`
	LastOAuth2Provider string `json:"lastOAuth2Provider,omitempty"`
}

// UserRecord is the canonical identity and profile entity, shared by the
// remote directory and the local registration store. Password is empty for
// OAuth2-only accounts; locally registered users carry a bcrypt hash,
// directory-seeded users carry the plaintext the directory ships with.
type UserRecord struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	Password        string          `json:"password,omitempty"`
	PersonalInfo    PersonalInfo    `json:"personalInfo"`
	AcademicInfo    AcademicInfo    `json:"academicInfo"`
	ProfileInfo     ProfileInfo     `json:"profileInfo"`
	ContactInfo     ContactInfo     `json:"contactInfo"`
	AccountSettings AccountSettings `json:"accountSettings"`
	Metadata        UserMetadata    `json:"metadata"`
}

// NewUserID generates a client-side user id of the form
// user_<unix-millis>_<xid>.
func NewUserID() string {
	return fmt.Sprintf("user_%d_%s", time.Now().UnixMilli(), xid.New().String())
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (u *UserRecord) FullName() string {
	return strings.TrimSpace(u.PersonalInfo.FirstName + " " + u.PersonalInfo.LastName)
}

// EmailMatches reports whether the record's email equals the given address,
// ignoring case. Email uniqueness is case-insensitive everywhere.
func (u *UserRecord) EmailMatches(email string) bool {
	return strings.EqualFold(u.Email, email)
}

// Sanitized returns a copy of the record with the password field cleared.
// Stores and services hand sanitized copies to callers so that credential
// material never leaves the authentication layer.
func (u *UserRecord) Sanitized() *UserRecord {
	out := *u
	out.Password = ""
	return &out
}

// TouchLastActive stamps the last-active time in RFC 3339 UTC.
func (u *UserRecord) TouchLastActive(now time.Time) {
	u.Metadata.LastActive = now.UTC().Format(time.RFC3339)
}

// appendUnique appends value to list unless an equal entry (case-insensitive)
// is already present.
func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return list
		}
	}
	return append(list, value)
}

// removeString removes every entry equal to value (case-insensitive).
func removeString(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if !strings.EqualFold(v, value) {
			out = append(out, v)
		}
	}
	return out
}

// AddSkill appends a skill, suppressing duplicates.
func (p *ProfileInfo) AddSkill(skill string) { p.Skills = appendUnique(p.Skills, skill) }

// RemoveSkill removes a skill if present.
func (p *ProfileInfo) RemoveSkill(skill string) { p.Skills = removeString(p.Skills, skill) }

// AddLanguage appends a language, suppressing duplicates.
func (p *ProfileInfo) AddLanguage(lang string) { p.Languages = appendUnique(p.Languages, lang) }

// RemoveLanguage removes a language if present.
func (p *ProfileInfo) RemoveLanguage(lang string) { p.Languages = removeString(p.Languages, lang) }

// AddInterest appends an interest, suppressing duplicates.
func (p *ProfileInfo) AddInterest(interest string) { p.Interests = appendUnique(p.Interests, interest) }

// RemoveInterest removes an interest if present.
func (p *ProfileInfo) RemoveInterest(interest string) { p.Interests = removeString(p.Interests, interest) }

// AddResearchArea appends a research area, suppressing duplicates.
func (a *AcademicInfo) AddResearchArea(area string) {
	a.ResearchAreas = appendUnique(a.ResearchAreas, area)
}

// RemoveResearchArea removes a research area if present.
func (a *AcademicInfo) RemoveResearchArea(area string) {
	a.ResearchAreas = removeString(a.ResearchAreas, area)
}

// UserPatch is a partial update applied section-wise: a non-nil section
// replaces the stored section wholesale, matching the mobile app's
// shallow-merge update semantics. Password, when set, is re-hashed by the
// store before persistence.
type UserPatch struct {
	Email           *string
	Password        *string
	PersonalInfo    *PersonalInfo
	AcademicInfo    *AcademicInfo
	ProfileInfo     *ProfileInfo
	ContactInfo     *ContactInfo
	AccountSettings *AccountSettings
	Metadata        *UserMetadata
}

// Apply copies the patch's non-nil sections onto the record. The password
// section is intentionally not applied here: stores hash it first.
func (p *UserPatch) Apply(u *UserRecord) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PersonalInfo != nil {
		u.PersonalInfo = *p.PersonalInfo
	}
	if p.AcademicInfo != nil {
		u.AcademicInfo = *p.AcademicInfo
	}
	if p.ProfileInfo != nil {
		u.ProfileInfo = *p.ProfileInfo
	}
	if p.ContactInfo != nil {
		u.ContactInfo = *p.ContactInfo
	}
	if p.AccountSettings != nil {
		u.AccountSettings = *p.AccountSettings
	}
	if p.Metadata != nil {
		u.Metadata = *p.Metadata
	}
}
