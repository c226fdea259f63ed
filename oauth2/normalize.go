package oauth2

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Profile is a provider-independent view of the authenticated account.
// Raw keeps the untouched provider document for callers that need fields
// the normalized shape drops.
type Profile struct {
	ID         string
	Email      string
	Name       string
	FirstName  string
	LastName   string
	Picture    string
	Provider   string
	ProviderID string
	Raw        map[string]any
}

type normalizeFunc func(raw map[string]any) Profile

var normalizers = map[string]normalizeFunc{
	ProviderGoogle:    normalizeGoogle,
	ProviderMicrosoft: normalizeMicrosoft,
	ProviderGithub:    normalizeGithub,
	ProviderORCID:     normalizeORCID,
}

// Normalize maps a raw provider profile document onto the shared Profile
// shape using the provider's own field conventions. Unknown providers get
// a best-effort generic mapping.
func Normalize(providerID string, raw map[string]any) Profile {
	fn, ok := normalizers[providerID]
	if !ok {
		fn = normalizeGeneric
	}
	p := fn(raw)
	p.Provider = providerID
	p.ProviderID = p.ID
	p.Raw = raw
	if p.FirstName == "" && p.LastName == "" && p.Name != "" {
		p.FirstName, p.LastName = splitName(p.Name)
	}
	return p
}

func normalizeGoogle(raw map[string]any) Profile {
	return Profile{
		ID:        str(raw, "id"),
		Email:     str(raw, "email"),
		Name:      str(raw, "name"),
		FirstName: str(raw, "given_name"),
		LastName:  str(raw, "family_name"),
		Picture:   str(raw, "picture"),
	}
}

func normalizeMicrosoft(raw map[string]any) Profile {
	return Profile{
		ID:        str(raw, "id"),
		Email:     str(raw, "mail", "userPrincipalName"),
		Name:      str(raw, "displayName"),
		FirstName: str(raw, "givenName"),
		LastName:  str(raw, "surname"),
	}
}

func normalizeGithub(raw map[string]any) Profile {
	return Profile{
		ID:      strID(raw["id"]),
		Email:   str(raw, "email"),
		Name:    str(raw, "name", "login"),
		Picture: str(raw, "avatar_url"),
	}
}

func normalizeORCID(raw map[string]any) Profile {
	return Profile{
		ID:    str(raw, "orcid", "sub"),
		Email: str(raw, "email"),
		Name:  str(raw, "name"),
	}
}

func normalizeGeneric(raw map[string]any) Profile {
	return Profile{
		ID:      strID(raw["id"]),
		Email:   str(raw, "email"),
		Name:    str(raw, "name"),
		Picture: str(raw, "picture"),
	}
}

// str returns the first key holding a non-empty string value.
func str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// strID stringifies an identifier that may arrive as a JSON number
// (GitHub's numeric account id) or a string.
func strID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// backfillFromIDToken fills missing profile fields from an OpenID Connect
// id_token when the token response carried one. The token is decoded
// without signature verification; it came over the provider's TLS channel
// and is only used for display fields, never authorization.
func backfillFromIDToken(p *Profile, tok *oauth2.Token) {
	if p.Email != "" && p.FirstName != "" && p.LastName != "" {
		return
	}
	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, claims); err != nil {
		return
	}
	if p.Email == "" {
		p.Email = str(claims, "email")
	}
	if p.FirstName == "" {
		p.FirstName = str(claims, "given_name")
	}
	if p.LastName == "" {
		p.LastName = str(claims, "family_name")
	}
	if p.Name == "" {
		p.Name = str(claims, "name")
	}
	if p.ID == "" {
		p.ID = str(claims, "sub")
	}
}
