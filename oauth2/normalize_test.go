package oauth2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePerProvider(t *testing.T) {
	cases := []struct {
		name     string
		provider string
		raw      map[string]any
		want     Profile
	}{
		{
			name:     "google",
			provider: ProviderGoogle,
			raw: map[string]any{
				"id":          "g-1",
				"email":       "maria@mit.edu",
				"name":        "Maria Santos",
				"given_name":  "Maria",
				"family_name": "Santos",
				"picture":     "https://example.com/p.png",
			},
			want: Profile{
				ID: "g-1", Email: "maria@mit.edu", Name: "Maria Santos",
				FirstName: "Maria", LastName: "Santos", Picture: "https://example.com/p.png",
			},
		},
		{
			name:     "microsoft prefers mail over userPrincipalName",
			provider: ProviderMicrosoft,
			raw: map[string]any{
				"id":                "m-1",
				"mail":              "ahmed@ox.ac.uk",
				"userPrincipalName": "ahmed_ox.ac.uk#EXT#@tenant.onmicrosoft.com",
				"displayName":       "Ahmed Hassan",
				"givenName":         "Ahmed",
				"surname":           "Hassan",
			},
			want: Profile{
				ID: "m-1", Email: "ahmed@ox.ac.uk", Name: "Ahmed Hassan",
				FirstName: "Ahmed", LastName: "Hassan",
			},
		},
		{
			name:     "microsoft falls back to userPrincipalName",
			provider: ProviderMicrosoft,
			raw: map[string]any{
				"id":                "m-2",
				"userPrincipalName": "lena@ethz.ch",
				"displayName":       "Lena Keller",
			},
			want: Profile{
				ID: "m-2", Email: "lena@ethz.ch", Name: "Lena Keller",
				FirstName: "Lena", LastName: "Keller",
			},
		},
		{
			name:     "github numeric id and login fallback",
			provider: ProviderGithub,
			raw: map[string]any{
				"id":         float64(583231),
				"email":      "kim@kaist.ac.kr",
				"login":      "kimdev",
				"avatar_url": "https://avatars.example.com/583231",
			},
			want: Profile{
				ID: "583231", Email: "kim@kaist.ac.kr", Name: "kimdev",
				FirstName: "kimdev", Picture: "https://avatars.example.com/583231",
			},
		},
		{
			name:     "orcid",
			provider: ProviderORCID,
			raw: map[string]any{
				"orcid": "0000-0002-1825-0097",
				"name":  "Josiah Carberry",
			},
			want: Profile{
				ID: "0000-0002-1825-0097", Name: "Josiah Carberry",
				FirstName: "Josiah", LastName: "Carberry",
			},
		},
		{
			name:     "unknown provider gets generic mapping",
			provider: "gitlab",
			raw: map[string]any{
				"id":    "gl-9",
				"email": "x@uni-bonn.de",
				"name":  "X Y",
			},
			want: Profile{
				ID: "gl-9", Email: "x@uni-bonn.de", Name: "X Y",
				FirstName: "X", LastName: "Y",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.provider, tc.raw)
			assert.Equal(t, tc.want.ID, got.ID)
			assert.Equal(t, tc.want.Email, got.Email)
			assert.Equal(t, tc.want.Name, got.Name)
			assert.Equal(t, tc.want.FirstName, got.FirstName)
			assert.Equal(t, tc.want.LastName, got.LastName)
			assert.Equal(t, tc.want.Picture, got.Picture)
			assert.Equal(t, tc.provider, got.Provider)
			assert.Equal(t, tc.want.ID, got.ProviderID)
			assert.Equal(t, tc.raw, got.Raw)
		})
	}
}

func TestStrID(t *testing.T) {
	assert.Equal(t, "42", strID(float64(42)))
	assert.Equal(t, "abc", strID("abc"))
	assert.Equal(t, "", strID(nil))
}
