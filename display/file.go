package display

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/rimage"
)

var unsafeNameChars = regexp.MustCompile(`[^a-z0-9]+`)

// FileSink writes every frame it is shown into a directory as name-NNNNNN.png.
type FileSink struct {
	dir       string
	maxFrames int
	width     uint
	logger    logging.Logger

	mu     sync.Mutex
	counts map[string]int
	stop   atomic.Bool
	closed bool
}

// NewFileSink creates dir if needed. With maxFrames above zero the sink requests a stop once
// that many main frames were written. A non-zero width scales frames before saving.
func NewFileSink(dir string, maxFrames, width int, logger logging.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &FileSink{
		dir:       dir,
		maxFrames: maxFrames,
		width:     uint(width),
		logger:    logger,
		counts:    map[string]int{},
	}, nil
}

// FileName turns a window name into the file name of its nth frame.
func FileName(name string, n int) string {
	slug := strings.Trim(unsafeNameChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "frame"
	}
	return fmt.Sprintf("%s-%06d.png", slug, n)
}

// Show writes img to the next file for name.
func (fs *FileSink) Show(ctx context.Context, name string, img image.Image) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.closed {
		return errors.New("file sink closed")
	}
	if fs.width > 0 {
		img = resize.Resize(fs.width, 0, img, resize.Bilinear)
	}
	n := fs.counts[name]
	path := filepath.Join(fs.dir, FileName(name, n))
	if err := rimage.WriteImageToFile(path, img); err != nil {
		return errors.Wrapf(err, "failed to write %q", path)
	}
	fs.counts[name] = n + 1
	fs.logger.Debugw("wrote frame", "path", path)
	if fs.maxFrames > 0 && name == WindowMain && n+1 >= fs.maxFrames {
		fs.stop.Store(true)
	}
	return nil
}

// Count returns how many frames were written for name.
func (fs *FileSink) Count(name string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.counts[name]
}

// StopRequested reports whether the frame limit was reached.
func (fs *FileSink) StopRequested() bool {
	return fs.stop.Load()
}

// Close stops accepting frames.
func (fs *FileSink) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
}
