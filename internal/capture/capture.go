// Package capture implements the capture-upload loop: a labelled camera
// session where every frame is written to one reusable file and sent to
// the ingestion API.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rsclarke/ingestcam/internal/models"
	"github.com/rsclarke/ingestcam/internal/types"
)

// State of the loop.
type State int

const (
	// Idle has no label; the camera is disabled.
	Idle State = iota
	// Ready has a label; the camera is enabled.
	Ready
	// Captured holds a frame waiting for Submit, Retake or Cancel.
	Captured
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Captured:
		return "captured"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Mode selects what happens after a successful capture.
type Mode string

const (
	// ModeAuto uploads every frame and re-opens the camera at once.
	ModeAuto Mode = "auto"
	// ModeManual holds the frame until Submit, Retake or Cancel.
	ModeManual Mode = "manual"
)

// Ordering selects how uploads are dispatched.
type Ordering string

const (
	// OrderingWeak starts each upload in its own goroutine once the
	// previous upload has finished. Capture carries on while it runs, and
	// its outcome is reported whenever the loop next checks.
	OrderingWeak Ordering = "weak"
	// OrderingStrict feeds uploads to one long-lived worker in capture
	// order.
	OrderingStrict Ordering = "strict"
)

// User-visible messages.
const (
	MsgNoLabel          = "Please enter a label!"
	MsgPermissionDenied = "Camera permission denied."
	MsgNoImage          = "No image captured"
	MsgNoPhoto          = "No photo to upload!"
	MsgSaveFailed       = "Failed to save image."
	MsgCancelled        = "Cancelled."
	MsgUploaded         = "Uploaded successfully!"
)

var (
	// ErrNoFrame is returned by a Camera when the user backed out or no
	// frame could be taken.
	ErrNoFrame = errors.New("no frame captured")

	ErrNoLabel          = errors.New("label required")
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoPhoto          = errors.New("no photo held")
	ErrBusy             = errors.New("a photo is waiting for submit, retake or cancel")
	ErrWrongMode        = errors.New("operation not available in this mode")
)

// FileError reports a failure persisting or reading back a frame.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("frame file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Camera takes one frame and returns it PNG-encoded.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Permission gates camera access.
type Permission interface {
	Granted() bool
	Request(ctx context.Context) (bool, error)
}

// Uploader sends one frame to the ingestion endpoint.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, label, apiKey string) (*types.UploadResult, error)
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(msg string)

func (f NotifyFunc) Notify(msg string) { f(msg) }

// Recorder persists upload attempts.
type Recorder interface {
	RecordUpload(ctx context.Context, u models.Upload) error
}

// AlwaysGranted is a Permission that is always given.
type AlwaysGranted struct{}

func (AlwaysGranted) Granted() bool { return true }

func (AlwaysGranted) Request(context.Context) (bool, error) { return true, nil }

func trimLabel(label string) string { return strings.TrimSpace(label) }
