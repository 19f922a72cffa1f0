package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/capture"
	"github.com/rsclarke/ingestcam/internal/client"
	"github.com/rsclarke/ingestcam/internal/types"
)

func TestMain(m *testing.M) {
	logger = zap.NewNop()
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTestPNG(t *testing.T, dir string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	path := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line, name, arg string
	}{
		{"", "", ""},
		{"  Submit ", "submit", ""},
		{"label  red cup ", "label", "red cup"},
		{"q", "q", ""},
	}
	for _, tt := range tests {
		name, arg := parseCommand(tt.line)
		assert.Equal(t, tt.name, name, tt.line)
		assert.Equal(t, tt.arg, arg, tt.line)
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Please enter username and password.",
		userMessage(client.NewValidationError("Please enter username and password.")))
	assert.Equal(t, "Network error: refused",
		userMessage(&client.NetworkError{Op: "POST /v1/api-login", Err: errors.New("refused")}))
	assert.Equal(t, "bad password",
		userMessage(&client.AuthError{APIError: client.APIError{StatusCode: 200, Message: "bad password"}}))
	assert.Equal(t, "boom", userMessage(errors.New("boom")))
}

func TestPrintProjects(t *testing.T) {
	var buf bytes.Buffer
	printProjects(&buf, nil)
	assert.Equal(t, "No projects found.\n", buf.String())

	buf.Reset()
	printProjects(&buf, []types.Project{{ID: 12, Name: "Cats"}, {ID: 7, Name: "Dogs"}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Cats")
	assert.True(t, strings.HasPrefix(lines[2], "1 "))
}

type sliceCamera struct{ frames [][]byte }

func (c *sliceCamera) Capture(context.Context) ([]byte, error) {
	if len(c.frames) == 0 {
		return nil, capture.ErrNoFrame
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f, nil
}

type countingUploader struct{ n int }

func (u *countingUploader) Upload(context.Context, []byte, string, string, string) (*types.UploadResult, error) {
	u.n++
	return &types.UploadResult{OK: true, StatusCode: 200, Message: "OK"}, nil
}

func TestHandleCommandManualFlow(t *testing.T) {
	up := &countingUploader{}
	loop := capture.New(capture.Config{
		Mode:     capture.ModeManual,
		Camera:   &sliceCamera{frames: [][]byte{[]byte("one"), []byte("two")}},
		Store:    capture.NewFrameStore(filepath.Join(t.TempDir(), "photo.png")),
		Uploader: up,
	})
	ctx := context.Background()
	var out bytes.Buffer

	assert.False(t, handleCommand(ctx, loop, "capture", &out), "no label yet")
	assert.Equal(t, capture.Idle, loop.State())

	handleCommand(ctx, loop, "label cup", &out)
	assert.Contains(t, out.String(), "Label: cup")

	handleCommand(ctx, loop, "", &out)
	assert.Equal(t, capture.Captured, loop.State())
	handleCommand(ctx, loop, "retake", &out)
	assert.Equal(t, []byte("two"), loop.Frame())
	handleCommand(ctx, loop, "submit", &out)
	assert.Equal(t, capture.Ready, loop.State())

	handleCommand(ctx, loop, "status", &out)
	assert.Contains(t, out.String(), "State: ready")
	handleCommand(ctx, loop, "dance", &out)
	assert.Contains(t, out.String(), `Unknown command "dance"`)

	assert.True(t, handleCommand(ctx, loop, "quit", &out))
	require.NoError(t, loop.Close(ctx))
	assert.Equal(t, 1, up.n)
}

func TestUploadCommandRecordsHistory(t *testing.T) {
	var gotLabel, gotKey, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLabel = r.Header.Get(client.HeaderLabel)
		gotKey = r.Header.Get(client.HeaderAPIKey)
		f, fh, err := r.FormFile(client.UploadField)
		if !assert.NoError(t, err, "FormFile") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.Close()
		gotFilename = fh.Filename
		ct, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
		assert.Equal(t, client.UploadContentType, ct, "part content type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("INGESTCAM_CACHE_DIR", dir)
	t.Setenv("INGESTCAM_HISTORY_DB", filepath.Join(dir, "history.db"))
	img := writeTestPNG(t, dir)

	out, err := execute(t, "upload", "--ingestion-url", srv.URL, "--api-key", "ei_test", "--label", "cup", img)
	require.NoError(t, err)
	assert.Equal(t, capture.MsgUploaded+"\n", out)
	assert.Equal(t, "cup", gotLabel)
	assert.Equal(t, "ei_test", gotKey)
	assert.Equal(t, "photo.png", gotFilename)

	out, err = execute(t, "history", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "cup")
	assert.Contains(t, out, "1 of 1 recorded uploads succeeded.")
}

func TestUploadCommandReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	t.Setenv("INGESTCAM_CACHE_DIR", dir)
	t.Setenv("INGESTCAM_HISTORY_DB", "")
	img := writeTestPNG(t, dir)

	_, err := execute(t, "upload", "--ingestion-url", srv.URL, "--api-key", "nope", "--label", "cup", img)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, strings.HasPrefix(apiErr.Message, "Upload failed: "))
}

func TestProjectsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jwt", r.Header.Get(client.HeaderJWTToken), "token header")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"projects":[{"id":3,"name":"Birds"}]}`)
	}))
	defer srv.Close()
	t.Setenv("INGESTCAM_CACHE_DIR", t.TempDir())

	out, err := execute(t, "projects", "--studio-url", srv.URL, "--token", "jwt")
	require.NoError(t, err)
	assert.Contains(t, out, "Birds")
}
