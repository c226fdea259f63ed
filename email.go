package collabauth

import (
	"regexp"
	"strings"
)

// academicDomains are the email domain suffixes recognized as belonging to
// academic institutions. OAuth2 sign-ups from one of these domains start
// out verified.
var academicDomains = []string{
	".edu",
	".ac.uk",
	".edu.au",
	".ac.ca",
	".ac.nz",
	".ac.za",
	".edu.sg",
	".ac.jp",
	".ac.kr",
	".ac.in",
	".ac.th",
	".edu.br",
	".edu.mx",
	".edu.co",
	".edu.ar",
	".ac.il",
	".ac.ae",
	".edu.eg",
	".ac.ma",
	".edu.pk",
	".ac.bd",
	".edu.my",
	".ac.lk",
}

// IsAcademicEmail reports whether the address ends with a recognized
// academic-institution domain suffix.
func IsAcademicEmail(email string) bool {
	lower := strings.ToLower(email)
	for _, domain := range academicDomains {
		if strings.HasSuffix(lower, domain) {
			return true
		}
	}
	return false
}

var (
	mailSubdomainRe = regexp.MustCompile(`^(mail\.|webmail\.|student\.|staff\.)`)
	academicTLDRe   = regexp.MustCompile(`\.(edu|ac\.uk|edu\.au|ac\.ca)$`)
)

// UniversityFromEmail derives a human-readable institution name from an
// email domain, best effort: strips common mail subdomains and academic
// TLDs, then title-cases the remaining labels. Returns "" when the address
// has no domain part.
func UniversityFromEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}

	domain := strings.ToLower(parts[1])
	domain = mailSubdomainRe.ReplaceAllString(domain, "")
	domain = academicTLDRe.ReplaceAllString(domain, "")

	labels := strings.Split(domain, ".")
	for i, l := range labels {
		if l == "" {
			continue
		}
		labels[i] = strings.ToUpper(l[:1]) + l[1:]
	}
	return strings.Join(labels, " ")
}
