package display

import (
	"context"
	"image"
	"image/draw"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"go.viam.com/skeletal/logging"
	"go.viam.com/skeletal/rimage"
)

// RunWindow opens the native screen and calls fn with a sink that shows each name in its own
// window. It must be called from the main goroutine and returns once fn returns.
func RunWindow(cfg Config, logger logging.Logger, fn func(Sink) error) error {
	var err error
	driver.Main(func(s screen.Screen) {
		sink := newWindowSink(s, cfg, logger)
		err = multierr.Combine(fn(sink), sink.Close())
	})
	return err
}

type windowSink struct {
	s      screen.Screen
	cfg    Config
	logger logging.Logger

	mu      sync.Mutex
	windows map[string]*window
	wg      sync.WaitGroup
	stop    atomic.Bool
	closed  bool
}

func newWindowSink(s screen.Screen, cfg Config, logger logging.Logger) *windowSink {
	return &windowSink{s: s, cfg: cfg, logger: logger, windows: map[string]*window{}}
}

// uploadEvent carries a frame into a window's event loop.
type uploadEvent struct {
	img *image.RGBA
}

type window struct {
	name string
	w    screen.Window
	done chan struct{}
}

func (ws *windowSink) Show(ctx context.Context, name string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	win, err := ws.window(name)
	if err != nil {
		return err
	}
	select {
	case <-win.done:
	default:
		win.w.Send(uploadEvent{img: rimage.CloneToRGBA(img)})
	}
	return nil
}

func (ws *windowSink) window(name string) (*window, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return nil, errors.New("window sink closed")
	}
	if win, ok := ws.windows[name]; ok {
		return win, nil
	}
	w, err := ws.s.NewWindow(&screen.NewWindowOptions{
		Title:  name,
		Width:  ws.cfg.WindowWidth,
		Height: ws.cfg.WindowHeight,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not create window %q", name)
	}
	win := &window{name: name, w: w, done: make(chan struct{})}
	ws.windows[name] = win
	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		defer close(win.done)
		if err := ws.eventLoop(win); err != nil {
			ws.logger.Errorw("window failed", "window", name, "error", err)
		}
		ws.stop.Store(true)
	}()
	return win, nil
}

// eventLoop runs until the window is closed, escape is pressed or the sink is closed.
func (ws *windowSink) eventLoop(win *window) error {
	defer win.w.Release()

	var (
		buf screen.Buffer
		tex screen.Texture
		sz  size.Event
	)
	defer func() {
		if buf != nil {
			buf.Release()
		}
		if tex != nil {
			tex.Release()
		}
	}()

	for {
		switch e := win.w.NextEvent().(type) {
		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return nil
			}

		case key.Event:
			if e.Code == key.CodeEscape || e.Rune == 'q' {
				return nil
			}

		case size.Event:
			sz = e

		case paint.Event:
			if tex != nil {
				win.w.Scale(sz.Bounds(), tex, tex.Bounds(), draw.Src, nil)
				win.w.Publish()
			}

		case uploadEvent:
			if e.img == nil {
				return nil
			}
			frameSize := e.img.Bounds().Size()
			if buf == nil || buf.Size() != frameSize {
				if buf != nil {
					buf.Release()
					tex.Release()
					buf, tex = nil, nil
				}
				newBuf, err := ws.s.NewBuffer(frameSize)
				if err != nil {
					return errors.Wrap(err, "could not create buffer")
				}
				buf = newBuf
				newTex, err := ws.s.NewTexture(frameSize)
				if err != nil {
					return errors.Wrap(err, "could not create texture")
				}
				tex = newTex
			}
			copy(buf.RGBA().Pix, e.img.Pix)
			tex.Upload(image.Point{}, buf, buf.Bounds())
			win.w.Scale(sz.Bounds(), tex, tex.Bounds(), draw.Src, nil)
			win.w.Publish()
		}
	}
}

func (ws *windowSink) StopRequested() bool {
	return ws.stop.Load()
}

// Close ends every window's event loop and waits for them to finish.
func (ws *windowSink) Close() error {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return nil
	}
	ws.closed = true
	for _, win := range ws.windows {
		select {
		case <-win.done:
		default:
			win.w.Send(uploadEvent{})
		}
	}
	ws.mu.Unlock()
	ws.wg.Wait()
	return nil
}
