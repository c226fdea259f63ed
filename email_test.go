package collabauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAcademicEmail(t *testing.T) {
	cases := []struct {
		email string
		want  bool
	}{
		{"maria@mit.edu", true},
		{"ahmed@cs.ox.ac.uk", true},
		{"kim@kaist.ac.kr", true},
		{"priya@iitb.ac.in", true},
		{"joao@usp.edu.br", true},
		{"MARIA@MIT.EDU", true},
		{"lena@ethz.ch", false},
		{"someone@gmail.com", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsAcademicEmail(tc.email), tc.email)
	}
}

func TestUniversityFromEmail(t *testing.T) {
	cases := []struct {
		email string
		want  string
	}{
		{"maria@mit.edu", "Mit"},
		{"ahmed@ox.ac.uk", "Ox"},
		{"someone@student.cs.ox.ac.uk", "Cs Ox"},
		{"jane@mail.harvard.edu", "Harvard"},
		{"lena@ethz.ch", "Ethz Ch"},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UniversityFromEmail(tc.email), tc.email)
	}
}
