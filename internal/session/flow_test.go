package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsclarke/ingestcam/internal/client"
	"github.com/rsclarke/ingestcam/internal/types"
)

type fakeStudio struct {
	loginCalls int
	loginToken string
	loginErr   error

	projects    []types.Project
	projectsErr error

	keys      map[int]string
	keyErr    error
	keyCalls  []int
	lastToken string
}

func (f *fakeStudio) Login(_ context.Context, username, password string) (string, error) {
	f.loginCalls++
	return f.loginToken, f.loginErr
}

func (f *fakeStudio) ListProjects(_ context.Context, token string) ([]types.Project, error) {
	f.lastToken = token
	return f.projects, f.projectsErr
}

func (f *fakeStudio) FetchAPIKey(_ context.Context, token string, projectID int) (string, error) {
	f.lastToken = token
	f.keyCalls = append(f.keyCalls, projectID)
	if f.keyErr != nil {
		return "", f.keyErr
	}
	return f.keys[projectID], nil
}

func TestLoginRequiresBothFields(t *testing.T) {
	for _, creds := range []Credentials{
		{Username: "", Password: "pw"},
		{Username: "alice", Password: ""},
		{Username: "   ", Password: "pw"},
		{},
	} {
		studio := &fakeStudio{loginToken: "jwt"}
		f := NewFlow(studio, New(), nil)

		err := f.Login(context.Background(), creds)

		var vErr *client.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, MsgMissingCredentials, vErr.Message)
		assert.Zero(t, studio.loginCalls, "login must not be invoked for %+v", creds)
		assert.False(t, f.Session().Authenticated())
	}
}

func TestLoginStoresToken(t *testing.T) {
	for _, token := range []string{"jwt-abc", ""} {
		studio := &fakeStudio{loginToken: token}
		f := NewFlow(studio, New(), nil)

		require.NoError(t, f.Login(context.Background(), Credentials{Username: "alice", Password: "pw"}))
		assert.True(t, f.Session().Authenticated())
		assert.Equal(t, token, f.Session().Token())
		assert.Equal(t, 1, studio.loginCalls)
	}
}

func TestLoginFailureLeavesSessionUnauthenticated(t *testing.T) {
	authErr := &client.AuthError{APIError: client.APIError{Message: "bad password"}}
	f := NewFlow(&fakeStudio{loginErr: authErr}, New(), nil)

	err := f.Login(context.Background(), Credentials{Username: "alice", Password: "pw"})
	require.ErrorIs(t, err, authErr)
	assert.False(t, f.Session().Authenticated())
}

func TestBeginLoginDoesNotTouchSession(t *testing.T) {
	f := NewFlow(&fakeStudio{loginToken: "jwt"}, New(), nil)

	ch, err := f.BeginLogin(context.Background(), Credentials{Username: "a", Password: "b"})
	require.NoError(t, err)
	r := <-ch
	assert.False(t, f.Session().Authenticated(), "session changes only on CompleteLogin")

	require.NoError(t, f.CompleteLogin(r))
	assert.True(t, f.Session().Authenticated())
}

func TestLoadProjectsReplacesList(t *testing.T) {
	studio := &fakeStudio{projects: []types.Project{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}}
	f := NewFlow(studio, WithToken("jwt"), nil)

	projects, err := f.LoadProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Project{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, projects)
	assert.Equal(t, "jwt", studio.lastToken)

	studio.projects = nil
	studio.projectsErr = &client.APIError{Message: client.MsgProjectsFailed}
	_, err = f.LoadProjects(context.Background())

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, f.Session().Projects(), "no stale entries after a failed fetch")
}

func TestBeginListProjectsClearsImmediately(t *testing.T) {
	studio := &fakeStudio{projects: []types.Project{{ID: 1, Name: "A"}}}
	f := NewFlow(studio, WithToken("jwt"), nil)
	_, err := f.LoadProjects(context.Background())
	require.NoError(t, err)

	ch, err := f.BeginListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.Session().Projects())
	<-ch
}

func TestLoadProjectsRequiresLogin(t *testing.T) {
	f := NewFlow(&fakeStudio{}, New(), nil)
	_, err := f.LoadProjects(context.Background())

	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestSelectProjectMapsIndexToID(t *testing.T) {
	studio := &fakeStudio{
		projects: []types.Project{{ID: 10, Name: "A"}, {ID: 20, Name: "B"}},
		keys:     map[int]string{20: "ei_b"},
	}
	f := NewFlow(studio, WithToken("jwt"), nil)
	_, err := f.LoadProjects(context.Background())
	require.NoError(t, err)

	sel, err := f.SelectProject(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{20}, studio.keyCalls)
	assert.Equal(t, "ei_b", sel.APIKey)

	key, ok := f.Session().APIKey()
	assert.True(t, ok)
	assert.Equal(t, "ei_b", key)
	assert.Equal(t, 20, f.Session().Project().ID)
}

func TestSelectProjectOutOfRange(t *testing.T) {
	studio := &fakeStudio{projects: []types.Project{{ID: 10, Name: "A"}}}
	f := NewFlow(studio, WithToken("jwt"), nil)
	_, err := f.LoadProjects(context.Background())
	require.NoError(t, err)

	for _, idx := range []int{-1, 1, 5} {
		_, err := f.SelectProject(context.Background(), idx)
		var vErr *client.ValidationError
		require.ErrorAs(t, err, &vErr)
	}
	assert.Empty(t, studio.keyCalls)
}

func TestSelectProjectKeyFailure(t *testing.T) {
	studio := &fakeStudio{
		projects: []types.Project{{ID: 10, Name: "A"}},
		keyErr:   &client.APIError{Message: client.MsgAPIKeyFailed},
	}
	f := NewFlow(studio, WithToken("jwt"), nil)
	_, err := f.LoadProjects(context.Background())
	require.NoError(t, err)

	_, err = f.SelectProject(context.Background(), 0)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	_, ok := f.Session().APIKey()
	assert.False(t, ok)
}

func TestSetTokenResetsDownstreamState(t *testing.T) {
	s := WithToken("jwt-1")
	s.setProjects([]types.Project{{ID: 1, Name: "A"}})
	s.SetAPIKey(types.Project{ID: 1, Name: "A"}, "k")

	s.SetToken("jwt-2")
	assert.Empty(t, s.Projects())
	_, ok := s.APIKey()
	assert.False(t, ok)
}
