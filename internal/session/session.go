// Package session holds the credential chain of one run (session token,
// then project API key) and the flows that produce it.
package session

import (
	"github.com/rsclarke/ingestcam/internal/types"
)

// Session is the state carried from login to upload. It is owned by the
// interaction goroutine and never touched by background calls.
type Session struct {
	token         string
	authenticated bool

	projects []types.Project

	project types.Project
	apiKey  string
	hasKey  bool
}

// New returns an unauthenticated session.
func New() *Session {
	return &Session{}
}

// WithToken returns a session that is already authenticated, e.g. with
// a token handed over from a previous command.
func WithToken(token string) *Session {
	s := New()
	s.SetToken(token)
	return s
}

// SetToken stores the session token. An empty token is accepted: the
// login endpoint may issue one.
func (s *Session) SetToken(token string) {
	s.token = token
	s.authenticated = true
	s.projects = nil
	s.clearKey()
}

// Token returns the session token.
func (s *Session) Token() string { return s.token }

// Authenticated reports whether a token has been issued.
func (s *Session) Authenticated() bool { return s.authenticated }

// Projects returns a copy of the currently displayed project list.
func (s *Session) Projects() []types.Project {
	out := make([]types.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

func (s *Session) clearProjects() { s.projects = nil }

func (s *Session) setProjects(p []types.Project) {
	s.projects = make([]types.Project, len(p))
	copy(s.projects, p)
}

// SetAPIKey stores the key resolved for project.
func (s *Session) SetAPIKey(project types.Project, key string) {
	s.project = project
	s.apiKey = key
	s.hasKey = true
}

func (s *Session) clearKey() {
	s.project = types.Project{}
	s.apiKey = ""
	s.hasKey = false
}

// APIKey returns the project API key and whether one has been resolved.
func (s *Session) APIKey() (string, bool) { return s.apiKey, s.hasKey }

// Project returns the project the API key belongs to.
func (s *Session) Project() types.Project { return s.project }
