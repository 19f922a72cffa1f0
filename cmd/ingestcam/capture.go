package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/camera"
	"github.com/rsclarke/ingestcam/internal/capture"
	"github.com/rsclarke/ingestcam/internal/config"
	"github.com/rsclarke/ingestcam/internal/console"
	"github.com/rsclarke/ingestcam/internal/logging"
)

// closeTimeout bounds how long in-flight uploads may take after the loop
// stops.
const closeTimeout = 30 * time.Second

type captureOptions struct {
	label     string
	source    string
	cameraCmd string
	mode      string
	ordering  string
	maxFPS    float64
	maxSide   int
	yes       bool
}

func addCaptureFlags(cmd *cobra.Command, o *captureOptions) {
	f := cmd.Flags()
	f.StringVar(&o.label, "label", os.Getenv("INGESTCAM_LABEL"), "label attached to every upload")
	f.StringVar(&o.source, "source", "", "directory of images to use as the camera")
	f.StringVar(&o.cameraCmd, "camera-cmd", "", "shell command that writes one image to stdout per capture")
	f.StringVar(&o.mode, "mode", "", "auto uploads every frame, manual waits for submit (default from config)")
	f.StringVar(&o.ordering, "ordering", "", "weak or strict upload ordering (default from config)")
	f.Float64Var(&o.maxFPS, "max-fps", 0, "limit auto mode to this many captures per second")
	f.IntVar(&o.maxSide, "max-side", 0, "downscale frames whose longer side exceeds this")
	f.BoolVarP(&o.yes, "yes", "y", false, "grant camera permission without asking")
	cmd.MarkFlagsMutuallyExclusive("source", "camera-cmd")
	cmd.MarkFlagsOneRequired("source", "camera-cmd")
}

// apply overlays explicitly set flags on the loaded config.
func (o *captureOptions) apply(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("mode") {
		c.Mode = o.mode
	}
	if f.Changed("ordering") {
		c.Ordering = o.ordering
	}
	if f.Changed("max-fps") {
		c.MaxFPS = o.maxFPS
	}
	if f.Changed("max-side") {
		c.MaxSide = o.maxSide
	}
	return c.Validate()
}

func (o *captureOptions) camera() (capture.Camera, error) {
	if o.cameraCmd != "" {
		return &camera.CommandCamera{Command: o.cameraCmd, MaxSide: cfg.MaxSide}, nil
	}
	cam, err := camera.NewDirCamera(o.source)
	if err != nil {
		return nil, err
	}
	cam.MaxSide = cfg.MaxSide
	cam.Logger = logger.Named("camera")
	return cam, nil
}

var captureFlags struct {
	captureOptions
	apiKey    string
	projectID int
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run the capture-upload loop with a known API key",
	Long: `Capture frames from an image directory or an external command and upload
each one under the label.

In auto mode every frame is uploaded and the camera is triggered again
until it reports no frame or the command is interrupted. In manual mode
commands are read from stdin:

  capture (or empty line)  take a frame
  submit                   upload the held frame
  retake                   discard it and take another
  cancel                   discard it
  label <text>             change the label
  status                   show state and uploads in flight
  quit                     stop`,
	Args: cobra.NoArgs,
	RunE: runCaptureCmd,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVar(&captureFlags.apiKey, "api-key", os.Getenv("INGESTCAM_API_KEY"), "project API key (env: INGESTCAM_API_KEY)")
	captureCmd.Flags().IntVar(&captureFlags.projectID, "project-id", 0, "project id recorded in the upload history")
	addCaptureFlags(captureCmd, &captureFlags.captureOptions)
}

func runCaptureCmd(cmd *cobra.Command, args []string) error {
	if captureFlags.apiKey == "" {
		return fmt.Errorf("API key required (use --api-key flag or INGESTCAM_API_KEY env var)")
	}
	if err := captureFlags.apply(cmd, cfg); err != nil {
		return err
	}
	return runCapture(cmd, &captureFlags.captureOptions, captureFlags.apiKey, captureFlags.projectID)
}

func runCapture(cmd *cobra.Command, o *captureOptions, apiKey string, projectID int) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()
	in := stdinLines(errOut)

	cam, err := o.camera()
	if err != nil {
		return err
	}
	c, err := newClient()
	if err != nil {
		return err
	}

	var perm capture.Permission = &camera.PromptPermission{Asker: in}
	if o.yes {
		perm = capture.AlwaysGranted{}
	}

	lc := capture.Config{
		Mode:       capture.Mode(cfg.Mode),
		Ordering:   capture.Ordering(cfg.Ordering),
		APIKey:     apiKey,
		ProjectID:  projectID,
		MaxFPS:     cfg.MaxFPS,
		Camera:     cam,
		Permission: perm,
		Store:      capture.NewFrameStore(cfg.FramePath()),
		Uploader:   c,
		Notifier:   capture.NotifyFunc(func(msg string) { fmt.Fprintln(errOut, msg) }),
		Logger:     logger.Named("capture"),
	}
	if h, err := openHistory(); err != nil {
		logger.Warn("upload history disabled", zap.Error(err))
	} else if h != nil {
		defer h.Close()
		lc.Recorder = h
	}

	loop := capture.New(lc)
	loop.SetLabel(o.label)
	logger.Info("capture loop starting",
		zap.String("mode", cfg.Mode),
		zap.String("ordering", cfg.Ordering),
		logging.Label(loop.Label()),
		logging.ProjectID(projectID),
		logging.Secret("api_key", apiKey))

	if lc.Mode == capture.ModeAuto {
		if loop.State() == capture.Idle {
			label, err := promptLabel(ctx, in, errOut)
			if err != nil {
				return err
			}
			loop.SetLabel(label)
		}
		err = loop.Run(ctx)
	} else {
		err = runManual(ctx, loop, in, errOut)
	}

	if loop.Inflight() > 0 {
		fmt.Fprintf(errOut, "Waiting for %d upload(s)...\n", loop.Inflight())
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if cerr := loop.Close(closeCtx); cerr != nil {
		logger.Warn("uploads abandoned", zap.Error(cerr))
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// promptLabel asks until a non-empty label is entered.
func promptLabel(ctx context.Context, in *console.Lines, out io.Writer) (string, error) {
	for {
		label, err := in.Ask(ctx, "Label: ")
		if err != nil {
			return "", err
		}
		if label != "" {
			return label, nil
		}
		fmt.Fprintln(out, capture.MsgNoLabel)
	}
}

func runManual(ctx context.Context, loop *capture.Loop, in *console.Lines, out io.Writer) error {
	fmt.Fprintln(out, "Commands: capture, submit, retake, cancel, label <text>, status, quit")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case o := <-loop.Outcomes():
			loop.Report(o)
		case <-in.Done():
			return nil
		case line := <-in.C():
			if quit := handleCommand(ctx, loop, line, out); quit {
				return nil
			}
		}
	}
}

// handleCommand runs one manual-mode command and reports whether the user
// asked to quit. Failures are already shown through the loop's notifier.
func handleCommand(ctx context.Context, loop *capture.Loop, line string, out io.Writer) bool {
	name, arg := parseCommand(line)
	var err error
	switch name {
	case "", "capture", "c":
		err = loop.Capture(ctx)
	case "submit", "s":
		err = loop.Submit(ctx)
	case "retake", "r":
		err = loop.Retake(ctx)
	case "cancel", "x":
		loop.Cancel()
	case "label", "l":
		loop.SetLabel(arg)
		if loop.Label() == "" {
			fmt.Fprintln(out, capture.MsgNoLabel)
		} else {
			fmt.Fprintf(out, "Label: %s\n", loop.Label())
		}
	case "status":
		fmt.Fprintf(out, "State: %s  Label: %q  Uploading: %d\n", loop.State(), loop.Label(), loop.Inflight())
	case "quit", "q", "exit":
		return true
	default:
		fmt.Fprintf(out, "Unknown command %q\n", name)
	}
	if err != nil {
		logger.Debug("command failed", zap.String("command", name), zap.Error(err))
	}
	return false
}

func parseCommand(line string) (name, arg string) {
	line = strings.TrimSpace(line)
	name, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}
