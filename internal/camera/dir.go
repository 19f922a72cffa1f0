package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rsclarke/ingestcam/internal/capture"
	"github.com/rsclarke/ingestcam/internal/logging"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// DirCamera yields the images in a directory one per capture, in name
// order, and reports capture.ErrNoFrame once they are used up.
type DirCamera struct {
	MaxSide int
	Logger  *zap.Logger

	mu    sync.Mutex
	files []string
	next  int
}

// NewDirCamera lists the image files in dir. It fails when there are none.
func NewDirCamera(dir string) (*DirCamera, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(files)

	return &DirCamera{files: files, Logger: zap.NewNop()}, nil
}

// Remaining returns how many images have not been captured yet.
func (c *DirCamera) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.files) - c.next
}

// Capture returns the next image as PNG. Files that fail to decode are
// skipped.
func (c *DirCamera) Capture(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.next < len(c.files) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := c.files[c.next]
		c.next++

		data, err := encodeFile(path, c.MaxSide)
		if err != nil {
			c.logger().Warn("skipping unreadable image", logging.Filename(path), zap.Error(err))
			continue
		}
		return data, nil
	}
	return nil, capture.ErrNoFrame
}

func (c *DirCamera) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func encodeFile(path string, maxSide int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return EncodePNG(f, maxSide)
}
