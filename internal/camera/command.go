package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rsclarke/ingestcam/internal/capture"
)

// CommandCamera runs a shell command per capture and reads one image from
// its standard output. Empty output means the user backed out.
type CommandCamera struct {
	Command string
	MaxSide int
}

func (c *CommandCamera) Capture(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", c.Command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stdout.Len() == 0 && stderr.Len() == 0 {
			return nil, capture.ErrNoFrame
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("camera command: %w", err)
		}
		return nil, fmt.Errorf("camera command: %w: %s", err, msg)
	}
	if stdout.Len() == 0 {
		return nil, capture.ErrNoFrame
	}
	return EncodePNG(&stdout, c.MaxSide)
}
