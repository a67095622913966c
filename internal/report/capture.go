package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RenderFunc produces the PNG bytes for one chart panel.
type RenderFunc func() ([]byte, error)

// Panel is the capture handle for one chart surface. Redraws run
// asynchronously; Settled exposes the completion of the most recent draw
// pass so an exporter can wait for a finished frame before reading pixels.
type Panel struct {
	Title string

	render  RenderFunc
	mu      sync.Mutex
	img     []byte
	err     error
	settled chan struct{}
}

// Invalidate starts a fresh draw pass. A draw superseded by a newer
// Invalidate does not commit its pixels.
func (p *Panel) Invalidate() {
	p.mu.Lock()
	ch := make(chan struct{})
	p.settled = ch
	render := p.render
	p.mu.Unlock()

	go func() {
		img, err := render()
		p.mu.Lock()
		if p.settled == ch {
			p.img, p.err = img, err
		}
		p.mu.Unlock()
		close(ch)
	}()
}

// Settled returns a channel that closes when the current draw pass
// finishes. A panel that was never invalidated is already settled (and
// has no pixels yet).
func (p *Panel) Settled() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.settled
}

func (p *Panel) setRender(render RenderFunc) {
	p.mu.Lock()
	p.render = render
	p.mu.Unlock()
}

// Image returns the pixels of the last completed draw pass.
func (p *Panel) Image() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if p.img == nil {
		return nil, fmt.Errorf("panel %q has not completed a draw pass", p.Title)
	}
	return p.img, nil
}

// Registry maps chart-group titles to capture handles. Panels are created
// lazily as chart groups come into existence (group membership is
// data-dependent), and the registry lives exactly as long as the report
// view: it is reset when a new analysis result replaces the old one.
type Registry struct {
	mu       sync.Mutex
	panels   map[string]*Panel
	animated bool
}

// NewRegistry creates an empty registry in interactive (animated) mode.
func NewRegistry() *Registry {
	return &Registry{
		panels:   make(map[string]*Panel),
		animated: true,
	}
}

// Panel returns the handle for a title, creating it on first use. The
// render closure is replaced on every call: the caller shapes it from the
// current window, so an existing handle must never keep drawing the inputs
// it was created with.
func (r *Registry) Panel(title string, render RenderFunc) *Panel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.panels[title]; ok {
		p.setRender(render)
		return p
	}
	p := &Panel{Title: title, render: render}
	r.panels[title] = p
	return p
}

// Reset discards every handle; called when the analysis result changes.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels = make(map[string]*Panel)
}

// SetAnimated toggles interactive chart animation. Export disables it so a
// static draw pass can be captured, and restores it afterwards.
func (r *Registry) SetAnimated(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.animated = v
}

// Animated reports the current interactive state.
func (r *Registry) Animated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.animated
}

// CaptureAll performs the two-phase export capture over the given panels:
// disable animation, trigger a static draw on every panel, wait the
// minimum settle delay plus each panel's own render completion, then read
// pixels. The animated flag is restored on every path, success or failure,
// so a failed export never leaves the view stuck in export mode.
func CaptureAll(ctx context.Context, reg *Registry, settle time.Duration, panels []*Panel) (map[string][]byte, error) {
	reg.SetAnimated(false)
	defer reg.SetAnimated(true)

	for _, p := range panels {
		p.Invalidate()
	}

	// Redraw is asynchronous relative to the invalidation that triggers
	// it; give every panel at least one full cycle before reading back.
	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	images := make(map[string][]byte, len(panels))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range panels {
		p := p
		g.Go(func() error {
			select {
			case <-p.Settled():
			case <-gctx.Done():
				return gctx.Err()
			}
			img, err := p.Image()
			if err != nil {
				return err
			}
			mu.Lock()
			images[p.Title] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}
