package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rsclarke/ingestcam/internal/async"
	"github.com/rsclarke/ingestcam/internal/client"
	"github.com/rsclarke/ingestcam/internal/logging"
	"github.com/rsclarke/ingestcam/internal/models"
	"github.com/rsclarke/ingestcam/internal/types"
)

// Config wires a Loop to its collaborators.
type Config struct {
	Mode      Mode
	Ordering  Ordering
	APIKey    string
	ProjectID int
	// MaxFPS throttles auto mode. Zero disables the throttle.
	MaxFPS float64

	Camera     Camera
	Permission Permission
	Store      *FrameStore
	Uploader   Uploader
	Notifier   Notifier
	Recorder   Recorder
	Logger     *zap.Logger
}

// Outcome is the completion of one upload.
type Outcome struct {
	ID       string
	Seq      int
	Label    string
	Filename string
	Size     int
	Result   *types.UploadResult
	Err      error
}

type job struct {
	data    []byte
	outcome Outcome
}

// Loop is the capture-upload state machine. All methods except the
// upload workers run on the caller's goroutine, which owns the state;
// upload completions come back through Outcomes and are applied by
// Report.
type Loop struct {
	cfg    Config
	logger *zap.Logger

	state  State
	label  string
	active string
	held   []byte

	seq      int
	inflight int
	limiter  *rate.Limiter

	outcomes  chan Outcome
	jobs      chan job
	closeOnce sync.Once

	uploadCtx     context.Context
	cancelUploads context.CancelFunc
}

func New(cfg Config) *Loop {
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	if cfg.Ordering == "" {
		cfg.Ordering = OrderingWeak
	}
	if cfg.Permission == nil {
		cfg.Permission = AlwaysGranted{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NotifyFunc(func(string) {})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	uploadCtx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		cfg:           cfg,
		logger:        logger,
		state:         Idle,
		outcomes:      make(chan Outcome, 16),
		uploadCtx:     uploadCtx,
		cancelUploads: cancel,
	}
	if cfg.MaxFPS > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.MaxFPS), 1)
	}
	if cfg.Ordering == OrderingStrict {
		l.jobs = make(chan job)
		go l.worker()
	}
	return l
}

// State returns the current state.
func (l *Loop) State() State { return l.state }

// Label returns the label as last entered.
func (l *Loop) Label() string { return l.label }

// Frame returns the held frame in manual mode, or nil.
func (l *Loop) Frame() []byte { return l.held }

// Inflight returns the number of uploads whose outcome has not been
// reported yet.
func (l *Loop) Inflight() int { return l.inflight }

// Outcomes delivers upload completions. Each one must be passed to
// Report on the owning goroutine.
func (l *Loop) Outcomes() <-chan Outcome { return l.outcomes }

// SetLabel updates the label. A non-empty label enables the camera; an
// empty one disables it. A held frame keeps the label it was taken with.
func (l *Loop) SetLabel(label string) {
	l.label = trimLabel(label)
	if l.state == Captured {
		return
	}
	if l.label == "" {
		l.state = Idle
	} else {
		l.state = Ready
	}
}

// Capture takes one frame. In manual mode the frame is held in Captured;
// in auto mode it is persisted and its upload dispatched.
func (l *Loop) Capture(ctx context.Context) error {
	if l.state == Captured {
		l.notify(ErrBusy.Error())
		return ErrBusy
	}
	if l.label == "" {
		l.notify(MsgNoLabel)
		return ErrNoLabel
	}

	granted := l.cfg.Permission.Granted()
	if !granted {
		var err error
		granted, err = l.cfg.Permission.Request(ctx)
		if err != nil {
			l.logger.Warn("permission request failed", zap.Error(err))
		}
	}
	if !granted {
		l.notify(MsgPermissionDenied)
		return ErrPermissionDenied
	}

	frame, err := l.trigger(ctx)
	switch {
	case err == nil && len(frame) == 0, errors.Is(err, ErrNoFrame):
		l.notify(MsgNoImage)
		return ErrNoFrame
	case err != nil:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.notify("Camera error: " + err.Error())
		return err
	}

	l.active = l.label
	if l.cfg.Mode == ModeManual {
		l.held = frame
		l.state = Captured
		return nil
	}
	return l.persistAndUpload(frame, l.active)
}

// Run is the auto-upload-and-continue loop: capture, upload, re-open the
// camera. It returns nil when the camera reports no frame, and the
// context error when ctx ends. Upload failures never end it.
func (l *Loop) Run(ctx context.Context) error {
	if l.cfg.Mode != ModeAuto {
		return ErrWrongMode
	}
	for {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
		}

		err := l.Capture(ctx)
		var fileErr *FileError
		switch {
		case err == nil, errors.As(err, &fileErr):
		case errors.Is(err, ErrNoFrame):
			return nil
		default:
			return err
		}
		l.Drain()
	}
}

// Submit uploads the held frame and returns to Ready. If the frame
// cannot be saved the loop stays in Captured so the user can try again.
func (l *Loop) Submit(ctx context.Context) error {
	if l.cfg.Mode != ModeManual {
		return ErrWrongMode
	}
	if l.state != Captured || l.held == nil {
		l.notify(MsgNoPhoto)
		return ErrNoPhoto
	}
	if err := l.persistAndUpload(l.held, l.active); err != nil {
		return err
	}
	l.discard()
	return nil
}

// Retake discards the held frame and captures a new one.
func (l *Loop) Retake(ctx context.Context) error {
	if l.cfg.Mode != ModeManual {
		return ErrWrongMode
	}
	if l.state != Captured {
		l.notify(MsgNoPhoto)
		return ErrNoPhoto
	}
	l.discard()
	return l.Capture(ctx)
}

// Cancel discards any held frame and returns to Ready.
func (l *Loop) Cancel() {
	l.discard()
	l.notify(MsgCancelled)
}

// Report applies an upload completion: it notifies the user and records
// the attempt.
func (l *Loop) Report(o Outcome) {
	l.inflight--

	fields := []zap.Field{
		logging.CaptureID(o.ID),
		zap.Int("seq", o.Seq),
		logging.Label(o.Label),
	}

	rec := models.Upload{
		ID:        o.ID,
		Seq:       o.Seq,
		Label:     o.Label,
		Filename:  o.Filename,
		Size:      o.Size,
		ProjectID: l.cfg.ProjectID,
		CreatedAt: time.Now().Unix(),
	}

	var netErr *client.NetworkError
	switch {
	case errors.As(o.Err, &netErr):
		l.logger.Warn("upload network error", append(fields, zap.Error(o.Err))...)
		l.notify("Network error: " + netErr.Err.Error())
		rec.Message = o.Err.Error()
	case o.Err != nil:
		l.logger.Warn("upload error", append(fields, zap.Error(o.Err))...)
		l.notify("Upload failed: " + o.Err.Error())
		rec.Message = o.Err.Error()
	case !o.Result.OK:
		l.logger.Warn("upload failed", append(fields, logging.Status(o.Result.StatusCode))...)
		l.notify(fmt.Sprintf("Upload failed: %d %s", o.Result.StatusCode, o.Result.Message))
		rec.StatusCode = o.Result.StatusCode
		rec.Message = o.Result.Message
	default:
		l.logger.Debug("upload completed", fields...)
		l.notify(MsgUploaded)
		rec.OK = true
		rec.StatusCode = o.Result.StatusCode
		rec.Message = o.Result.Message
	}

	if l.cfg.Recorder != nil {
		if err := l.cfg.Recorder.RecordUpload(l.uploadCtx, rec); err != nil {
			l.logger.Warn("record upload failed", append(fields, zap.Error(err))...)
		}
	}
}

// Drain reports every completion that is already available without
// blocking.
func (l *Loop) Drain() {
	for {
		select {
		case o := <-l.outcomes:
			l.Report(o)
		default:
			return
		}
	}
}

// Close waits for in-flight uploads, reporting each, until ctx ends.
// Uploads still running after that are cancelled.
func (l *Loop) Close(ctx context.Context) error {
	defer l.shutdown()
	for l.inflight > 0 {
		select {
		case o := <-l.outcomes:
			l.Report(o)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (l *Loop) shutdown() {
	l.closeOnce.Do(func() {
		l.cancelUploads()
		if l.jobs != nil {
			close(l.jobs)
		}
	})
}

func (l *Loop) trigger(ctx context.Context) ([]byte, error) {
	ch := async.Go(ctx, l.cfg.Camera.Capture)
	for {
		select {
		case r := <-ch:
			return r.Value, r.Err
		case o := <-l.outcomes:
			l.Report(o)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *Loop) persistAndUpload(frame []byte, label string) error {
	store := l.cfg.Store
	if err := store.Save(frame); err != nil {
		l.logger.Error("save frame failed", zap.Error(err))
		l.notify(MsgSaveFailed)
		return err
	}
	data, err := store.Load()
	if err != nil {
		l.logger.Error("read back frame failed", zap.Error(err))
		l.notify(MsgSaveFailed)
		return err
	}

	l.seq++
	j := job{
		data: data,
		outcome: Outcome{
			ID:       uuid.NewString(),
			Seq:      l.seq,
			Label:    label,
			Filename: store.Filename(),
			Size:     len(data),
		},
	}
	l.logger.Debug("dispatching upload",
		logging.CaptureID(j.outcome.ID),
		zap.Int("seq", j.outcome.Seq),
		logging.Bytes(len(data)))
	l.dispatch(j)
	return nil
}

// dispatch starts the upload of j. At most one upload runs at a time: the
// previous one is waited for, and its outcome reported, before the next
// one starts.
func (l *Loop) dispatch(j job) {
	if l.jobs == nil {
		for l.inflight > 0 {
			l.Report(<-l.outcomes)
		}
		l.inflight++
		go func() { l.send(l.upload(j)) }()
		return
	}
	l.inflight++
	// The worker may be blocked handing over the previous outcome.
	for {
		select {
		case l.jobs <- j:
			return
		case o := <-l.outcomes:
			l.Report(o)
		}
	}
}

func (l *Loop) worker() {
	for j := range l.jobs {
		l.send(l.upload(j))
	}
}

// send hands o to the owner, giving up once the loop has shut down.
func (l *Loop) send(o Outcome) {
	select {
	case l.outcomes <- o:
	case <-l.uploadCtx.Done():
	}
}

func (l *Loop) upload(j job) Outcome {
	o := j.outcome
	o.Result, o.Err = l.cfg.Uploader.Upload(l.uploadCtx, j.data, o.Filename, o.Label, l.cfg.APIKey)
	if o.Err == nil && o.Result == nil {
		o.Err = errors.New("uploader returned no result")
	}
	return o
}

func (l *Loop) discard() {
	l.held = nil
	if l.label == "" {
		l.state = Idle
	} else {
		l.state = Ready
	}
}

func (l *Loop) notify(msg string) {
	l.cfg.Notifier.Notify(msg)
}
