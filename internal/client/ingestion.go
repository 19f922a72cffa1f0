package client

import (
	"context"
	"net/http"

	"github.com/rsclarke/ingestcam/internal/logging"
	"github.com/rsclarke/ingestcam/internal/types"
)

// Upload form field and content type expected by the ingestion API.
const (
	UploadField       = "data"
	UploadContentType = "image/png"
	uploadPath        = "/api/training/files"
)

// Upload sends one image to the ingestion endpoint under label. A
// received non-2xx response is reported through the result, not the
// error; the error is reserved for requests that got no response.
func (c *Client) Upload(ctx context.Context, data []byte, filename, label, apiKey string) (*types.UploadResult, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    c.IngestionURL + uploadPath,
		Header: map[string]string{
			HeaderLabel:  label,
			HeaderAPIKey: apiKey,
		},
		Body: MultipartFile(UploadField, filename, UploadContentType, data),
	})
	if err != nil {
		return nil, err
	}

	result := &types.UploadResult{
		OK:         resp.OK(),
		StatusCode: resp.StatusCode,
		Message:    resp.Message,
		Body:       resp.Body,
	}
	if result.OK {
		c.Logger.Info("uploaded", logging.Label(label), logging.Filename(filename), logging.Bytes(len(data)))
	} else {
		c.Logger.Warn("upload rejected", logging.Label(label), logging.Status(resp.StatusCode))
	}
	return result, nil
}

// UploadError converts a failed result into an *APIError. It returns nil
// for successful results.
func UploadError(r *types.UploadResult) error {
	if r == nil || r.OK {
		return nil
	}
	return &APIError{StatusCode: r.StatusCode, Message: "Upload failed: " + r.Message, Body: r.Body}
}
