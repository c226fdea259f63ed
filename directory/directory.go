// Package directory fetches the published user directory document and
// serves lookups from a process-lifetime in-memory cache.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prohub/collabauth"
)

// Metadata describes the directory document itself.
type Metadata struct {
	Version       string `json:"version"`
	LastUpdated   string `json:"lastUpdated"`
	TotalUsers    int    `json:"totalUsers"`
	SchemaVersion string `json:"schemaVersion,omitempty"`
}

// document is the wire shape of the published directory.
type document struct {
	Users    []*collabauth.UserRecord `json:"users"`
	Metadata Metadata                 `json:"metadata"`
}

// Client reads the remote user directory. The document is fetched at most
// once per process: the first successful fetch is cached for the client's
// lifetime and never invalidated. A failed fetch is not cached, so the next
// call retries.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger

	mu  sync.Mutex
	doc *document
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Tests point this at httptest
// servers.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// NewClient builds a directory client for the given document URL.
func NewClient(url string, opts ...Option) *Client {
	cl := &Client{
		url:    url,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// fetch returns the cached document, fetching it on first use.
func (c *Client) fetch(ctx context.Context) (*document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc != nil {
		return c.doc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user directory: %w: %v", collabauth.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching user directory: %w: server returned %s", collabauth.ErrNetwork, resp.Status)
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding user directory: %w: %v", collabauth.ErrParse, err)
	}

	c.doc = &doc
	c.logger.Info("user directory loaded", "users", len(doc.Users), "version", doc.Metadata.Version)
	return c.doc, nil
}

// FindByEmail looks up a directory user by email, case-insensitively.
// Returns (nil, nil) when no user matches. The returned record keeps its
// password field so callers can verify credentials against it.
func (c *Client) FindByEmail(ctx context.Context, email string) (*collabauth.UserRecord, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range doc.Users {
		if u.EmailMatches(email) {
			return u, nil
		}
	}
	return nil, nil
}

// All returns sanitized copies of every directory user.
func (c *Client) All(ctx context.Context) ([]*collabauth.UserRecord, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*collabauth.UserRecord, 0, len(doc.Users))
	for _, u := range doc.Users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}

// Metadata returns the directory document metadata.
func (c *Client) Metadata(ctx context.Context) (*Metadata, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	md := doc.Metadata
	return &md, nil
}

// Query narrows a directory search. Zero-value fields do not constrain.
type Query struct {
	// Text matches against name, email, university, skills and research
	// areas, case-insensitively.
	Text string

	University   string
	Department   string
	ResearchArea string
	VerifiedOnly bool
}

// Search returns sanitized copies of the directory users matching the
// query.
func (c *Client) Search(ctx context.Context, q Query) ([]*collabauth.UserRecord, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	var out []*collabauth.UserRecord
	for _, u := range doc.Users {
		if matches(u, q) {
			out = append(out, u.Sanitized())
		}
	}
	return out, nil
}

func matches(u *collabauth.UserRecord, q Query) bool {
	if q.VerifiedOnly && !u.AccountSettings.IsVerified {
		return false
	}
	if q.University != "" && !strings.EqualFold(u.AcademicInfo.University, q.University) {
		return false
	}
	if q.Department != "" && !strings.EqualFold(u.AcademicInfo.Department, q.Department) {
		return false
	}
	if q.ResearchArea != "" && !containsFold(u.AcademicInfo.ResearchAreas, q.ResearchArea) {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		haystack := strings.ToLower(strings.Join(append([]string{
			u.FullName(), u.Email, u.AcademicInfo.University,
		}, append(u.ProfileInfo.Skills, u.AcademicInfo.ResearchAreas...)...), " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// Stats summarizes the directory population.
type Stats struct {
	TotalUsers   int
	Verified     int
	Universities map[string]int
	Departments  map[string]int
}

// Stats computes aggregate counts over the directory.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	doc, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		TotalUsers:   len(doc.Users),
		Universities: make(map[string]int),
		Departments:  make(map[string]int),
	}
	for _, u := range doc.Users {
		if u.AccountSettings.IsVerified {
			st.Verified++
		}
		if uni := u.AcademicInfo.University; uni != "" {
			st.Universities[uni]++
		}
		if dep := u.AcademicInfo.Department; dep != "" {
			st.Departments[dep]++
		}
	}
	return st, nil
}

// TopUniversities returns universities ordered by member count, largest
// first, ties broken alphabetically.
func (s *Stats) TopUniversities(n int) []string {
	names := make([]string, 0, len(s.Universities))
	for name := range s.Universities {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.Universities[names[i]] != s.Universities[names[j]] {
			return s.Universities[names[i]] > s.Universities[names[j]]
		}
		return names[i] < names[j]
	})
	if n > 0 && len(names) > n {
		names = names[:n]
	}
	return names
}
