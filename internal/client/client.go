// Package client talks to the studio API and the ingestion API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/logging"
)

// Default service hosts.
const (
	DefaultStudioURL    = "https://studio.edgeimpulse.com"
	DefaultIngestionURL = "https://ingestion.edgeimpulse.com"
)

// Header names injected on authenticated requests.
const (
	HeaderJWTToken = "x-jwt-token"
	HeaderAPIKey   = "x-api-key"
	HeaderLabel    = "x-label"
)

// Client issues requests against the studio and ingestion hosts.
type Client struct {
	StudioURL    string
	IngestionURL string
	HTTP         *http.Client
	Logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTP = hc }
}

// WithTimeout sets a whole-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTP = &http.Client{Timeout: d} }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.Logger = logger }
}

func NewClient(studioURL, ingestionURL string, opts ...Option) *Client {
	c := &Client{
		StudioURL:    strings.TrimRight(studioURL, "/"),
		IngestionURL: strings.TrimRight(ingestionURL, "/"),
		HTTP:         &http.Client{},
		Logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Body encodes a request payload.
type Body interface {
	Encode() (r io.Reader, contentType string, err error)
}

type jsonBody struct{ v any }

// JSONBody returns a Body that marshals v as JSON.
func JSONBody(v any) Body { return jsonBody{v: v} }

func (b jsonBody) Encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.v)
	if err != nil {
		return nil, "", fmt.Errorf("marshal json body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

type multipartFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// MultipartFile returns a multipart/form-data Body with a single file
// field.
func MultipartFile(field, filename, contentType string, data []byte) Body {
	return multipartFile{field: field, filename: filename, contentType: contentType, data: data}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (b multipartFile) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(b.field), quoteEscaper.Replace(b.filename)))
	h.Set("Content-Type", b.contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(b.data); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Request is a single HTTP call.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   Body
}

// Response is a received HTTP response with its body fully read.
type Response struct {
	StatusCode int
	// Message is the reason phrase, e.g. "Internal Server Error".
	Message string
	Header  http.Header
	Body    []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Do sends req. A *NetworkError is returned when no response was
// received. Non-2xx responses are returned without error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	var contentType string
	if req.Body != nil {
		var err error
		body, contentType, err = req.Body.Encode()
		if err != nil {
			return nil, err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		c.Logger.Debug("request failed",
			logging.Method(req.Method),
			logging.Path(httpReq.URL.Path),
			zap.Error(err))
		return nil, &NetworkError{Op: req.Method + " " + httpReq.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read response body", Err: err}
	}

	c.Logger.Debug("request completed",
		logging.Method(req.Method),
		logging.Path(httpReq.URL.Path),
		logging.Status(resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	return &Response{
		StatusCode: resp.StatusCode,
		Message:    reasonPhrase(resp),
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func reasonPhrase(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}
