package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/async"
	"github.com/rsclarke/ingestcam/internal/client"
	"github.com/rsclarke/ingestcam/internal/logging"
	"github.com/rsclarke/ingestcam/internal/types"
)

// User-visible validation messages.
const (
	MsgMissingCredentials = "Please enter username and password."
	MsgNotAuthenticated   = "Not logged in."
)

// Studio is the part of the studio API the flow depends on.
type Studio interface {
	Login(ctx context.Context, username, password string) (string, error)
	ListProjects(ctx context.Context, token string) ([]types.Project, error)
	FetchAPIKey(ctx context.Context, token string, projectID int) (string, error)
}

// Credentials are used once to obtain a session token and then dropped.
type Credentials struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// Selection is the outcome of resolving a project's API key.
type Selection struct {
	Project types.Project
	APIKey  string
}

// Flow drives login and project/key resolution against a Studio. The
// Begin* methods start the network call in the background and return at
// once; the matching Complete* method must be called from the goroutine
// that owns the Session once the result has been received.
type Flow struct {
	studio   Studio
	sess     *Session
	validate *validator.Validate
	logger   *zap.Logger
}

func NewFlow(studio Studio, sess *Session, logger *zap.Logger) *Flow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		studio:   studio,
		sess:     sess,
		validate: validator.New(),
		logger:   logger,
	}
}

// Session returns the session the flow writes to.
func (f *Flow) Session() *Session { return f.sess }

// BeginLogin validates creds and starts the login call. Missing fields
// yield a *client.ValidationError and no request is made.
func (f *Flow) BeginLogin(ctx context.Context, creds Credentials) (<-chan async.Result[string], error) {
	creds.Username = strings.TrimSpace(creds.Username)
	creds.Password = strings.TrimSpace(creds.Password)
	if err := f.validate.Struct(creds); err != nil {
		return nil, client.NewValidationError(MsgMissingCredentials)
	}

	f.logger.Debug("logging in", zap.String("username", creds.Username))
	return async.Go(ctx, func(ctx context.Context) (string, error) {
		return f.studio.Login(ctx, creds.Username, creds.Password)
	}), nil
}

// CompleteLogin applies a login result to the session.
func (f *Flow) CompleteLogin(r async.Result[string]) error {
	if r.Err != nil {
		f.logger.Info("login failed", zap.Error(r.Err))
		return r.Err
	}
	f.sess.SetToken(r.Value)
	f.logger.Info("logged in", logging.Secret("token", r.Value))
	return nil
}

// Login runs BeginLogin and CompleteLogin back to back.
func (f *Flow) Login(ctx context.Context, creds Credentials) error {
	ch, err := f.BeginLogin(ctx, creds)
	if err != nil {
		return err
	}
	return f.CompleteLogin(receive(ctx, ch))
}

// BeginListProjects clears the displayed project list and starts fetching
// a fresh one.
func (f *Flow) BeginListProjects(ctx context.Context) (<-chan async.Result[[]types.Project], error) {
	if !f.sess.Authenticated() {
		return nil, client.NewValidationError(MsgNotAuthenticated)
	}
	f.sess.clearProjects()

	token := f.sess.Token()
	return async.Go(ctx, func(ctx context.Context) ([]types.Project, error) {
		return f.studio.ListProjects(ctx, token)
	}), nil
}

// CompleteListProjects replaces the displayed list with the result. On
// failure the list stays empty.
func (f *Flow) CompleteListProjects(r async.Result[[]types.Project]) ([]types.Project, error) {
	f.sess.clearProjects()
	if r.Err != nil {
		f.logger.Info("list projects failed", zap.Error(r.Err))
		return nil, r.Err
	}
	f.sess.setProjects(r.Value)
	f.logger.Debug("projects loaded", zap.Int("count", len(r.Value)))
	return f.sess.Projects(), nil
}

// LoadProjects runs BeginListProjects and CompleteListProjects back to back.
func (f *Flow) LoadProjects(ctx context.Context) ([]types.Project, error) {
	ch, err := f.BeginListProjects(ctx)
	if err != nil {
		return nil, err
	}
	return f.CompleteListProjects(receive(ctx, ch))
}

// BeginSelectProject maps a display index back to its project and starts
// resolving that project's API key.
func (f *Flow) BeginSelectProject(ctx context.Context, index int) (<-chan async.Result[Selection], error) {
	if !f.sess.Authenticated() {
		return nil, client.NewValidationError(MsgNotAuthenticated)
	}
	projects := f.sess.projects
	if index < 0 || index >= len(projects) {
		return nil, client.NewValidationError(fmt.Sprintf("No project at index %d.", index))
	}
	return f.BeginResolveKey(ctx, projects[index]), nil
}

// BeginResolveKey starts resolving the API key of project directly, for
// callers that know the project id without listing.
func (f *Flow) BeginResolveKey(ctx context.Context, project types.Project) <-chan async.Result[Selection] {
	token := f.sess.Token()
	f.logger.Debug("fetching API key", logging.ProjectID(project.ID))
	return async.Go(ctx, func(ctx context.Context) (Selection, error) {
		key, err := f.studio.FetchAPIKey(ctx, token, project.ID)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Project: project, APIKey: key}, nil
	})
}

// CompleteSelectProject stores the resolved key in the session.
func (f *Flow) CompleteSelectProject(r async.Result[Selection]) (Selection, error) {
	if r.Err != nil {
		f.logger.Info("fetch API key failed", zap.Error(r.Err))
		return Selection{}, r.Err
	}
	f.sess.SetAPIKey(r.Value.Project, r.Value.APIKey)
	f.logger.Info("project selected",
		logging.ProjectID(r.Value.Project.ID),
		logging.Secret("api_key", r.Value.APIKey))
	return r.Value, nil
}

// SelectProject runs BeginSelectProject and CompleteSelectProject back to
// back.
func (f *Flow) SelectProject(ctx context.Context, index int) (Selection, error) {
	ch, err := f.BeginSelectProject(ctx, index)
	if err != nil {
		return Selection{}, err
	}
	return f.CompleteSelectProject(receive(ctx, ch))
}

func receive[T any](ctx context.Context, ch <-chan async.Result[T]) async.Result[T] {
	v, err := async.Await(ctx, ch)
	return async.Result[T]{Value: v, Err: err}
}
