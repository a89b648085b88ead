//go:build gocv

package display

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

const escapeKey = 27

// CVWindow shows frames in OpenCV HighGUI windows. It is only built with the gocv tag since it
// needs OpenCV installed.
type CVWindow struct {
	mu      sync.Mutex
	windows map[string]*gocv.Window
	stop    bool
}

// NewCVWindow returns a sink that opens a HighGUI window per name.
func NewCVWindow() *CVWindow {
	return &CVWindow{windows: map[string]*gocv.Window{}}
}

func init() {
	newOpenCVSink = func() (Sink, error) {
		return NewCVWindow(), nil
	}
}

// Show draws img into the window for name and polls the keyboard once.
func (cw *CVWindow) Show(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return errors.Wrap(err, "could not convert frame")
	}
	defer mat.Close()

	cw.mu.Lock()
	defer cw.mu.Unlock()
	w, ok := cw.windows[name]
	if !ok {
		w = gocv.NewWindow(name)
		cw.windows[name] = w
	}
	w.IMShow(mat)
	if w.WaitKey(1) == escapeKey {
		cw.stop = true
	}
	return nil
}

// StopRequested reports whether escape was pressed in any window.
func (cw *CVWindow) StopRequested() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.stop
}

// Close destroys every window.
func (cw *CVWindow) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	var err error
	for name, w := range cw.windows {
		err = multierr.Combine(err, w.Close())
		delete(cw.windows, name)
	}
	return err
}
