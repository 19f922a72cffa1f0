package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/logging"
	"github.com/rsclarke/ingestcam/internal/types"
)

// Messages surfaced when the studio reports a failure without detail.
const (
	MsgLoginFailed    = "Login failed"
	MsgProjectsFailed = "Failed to fetch projects."
	MsgAPIKeyFailed   = "Failed to fetch API key"
)

// Login exchanges credentials for a session token. A success:true
// response yields its token verbatim, including an empty one.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    c.StudioURL + "/v1/api-login",
		Body:   JSONBody(types.LoginRequest{Username: username, Password: password}),
	})
	if err != nil {
		return "", err
	}

	var result types.LoginResponse
	if err := decodeObject(resp.Body, &result); err != nil {
		return "", &AuthError{APIError: *malformed(resp, MsgLoginFailed, err), Malformed: true}
	}

	if !result.Success {
		msg := MsgLoginFailed
		if result.Error != nil && *result.Error != "" {
			msg = *result.Error
		}
		return "", &AuthError{APIError: APIError{StatusCode: resp.StatusCode, Message: msg, Body: resp.Body}}
	}

	if result.Token == "" {
		c.Logger.Warn("login succeeded with an empty token")
	}
	return result.Token, nil
}

// ListProjects returns the projects visible to the session, in service
// order.
func (c *Client) ListProjects(ctx context.Context, token string) ([]types.Project, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    c.StudioURL + "/v1/api/projects",
		Header: map[string]string{HeaderJWTToken: token},
	})
	if err != nil {
		return nil, err
	}

	var result types.ListProjectsResponse
	if err := decodeObject(resp.Body, &result); err != nil {
		return nil, malformed(resp, MsgProjectsFailed, err)
	}
	if !result.Success {
		return nil, failure(resp, MsgProjectsFailed, result.Error)
	}

	projects := make([]types.Project, 0, len(result.Projects))
	for i, p := range result.Projects {
		if p.ID == nil || p.Name == nil {
			c.Logger.Debug("project entry missing id or name", zap.Int("index", i))
			return nil, &APIError{StatusCode: resp.StatusCode, Message: MsgProjectsFailed, Body: resp.Body}
		}
		projects = append(projects, types.Project{ID: *p.ID, Name: *p.Name})
	}
	return projects, nil
}

// FetchAPIKey returns the first API key of a project. The first element
// of the returned list is authoritative even when several exist.
func (c *Client) FetchAPIKey(ctx context.Context, token string, projectID int) (string, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v1/api/%d/apikeys", c.StudioURL, projectID),
		Header: map[string]string{HeaderJWTToken: token},
	})
	if err != nil {
		return "", err
	}

	var result types.ListAPIKeysResponse
	if err := decodeObject(resp.Body, &result); err != nil {
		return "", malformed(resp, MsgAPIKeyFailed, err)
	}
	if !result.Success {
		return "", failure(resp, MsgAPIKeyFailed, result.Error)
	}
	if len(result.APIKeys) == 0 {
		c.Logger.Info("project has no API keys", logging.ProjectID(projectID))
		return "", &APIError{StatusCode: resp.StatusCode, Message: MsgAPIKeyFailed + ": project has no API keys", Body: resp.Body}
	}
	if result.APIKeys[0].APIKey == nil {
		return "", &APIError{StatusCode: resp.StatusCode, Message: MsgAPIKeyFailed, Body: resp.Body}
	}
	if len(result.APIKeys) > 1 {
		c.Logger.Debug("using first of several API keys",
			logging.ProjectID(projectID),
			zap.Int("count", len(result.APIKeys)))
	}
	return *result.APIKeys[0].APIKey, nil
}

var errNotObject = errors.New("body is not a JSON object")

// decodeObject unmarshals body into v, rejecting anything but a JSON
// object. A bare null would otherwise decode into the zero value.
func decodeObject(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(trimmed, v)
}

func malformed(resp *Response, what string, err error) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("%s: unexpected response: %v", what, err),
		Body:       resp.Body,
	}
}

func failure(resp *Response, fallback, reported string) error {
	msg := fallback
	if reported != "" {
		msg = reported
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg, Body: resp.Body}
}
