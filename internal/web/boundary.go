package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"runtime/debug"
	"sync"

	"github.com/wolfman30/leadintake/pkg/logging"
)

// BoundaryState is either ok or errored. There is no way back to ok.
type BoundaryState string

const (
	BoundaryOK      BoundaryState = "ok"
	BoundaryErrored BoundaryState = "errored"
)

// RenderFunc writes one section of a page.
type RenderFunc func(w io.Writer) error

// Boundary isolates a page section: the first failure, returned error or
// panic, switches it to errored and every later render writes the fallback.
type Boundary struct {
	label  string
	logger *logging.Logger

	mu    sync.Mutex
	state BoundaryState
	cause error
}

// NewBoundary returns a boundary in the ok state.
func NewBoundary(label string, logger *logging.Logger) *Boundary {
	return &Boundary{
		label:  label,
		logger: logger.Component("boundary"),
		state:  BoundaryOK,
	}
}

// State reports the current state.
func (b *Boundary) State() BoundaryState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Err returns the failure that tripped the boundary, if any.
func (b *Boundary) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cause
}

// Render writes the section into w, or the fallback once errored. Partial
// output from a failed render is discarded.
func (b *Boundary) Render(w io.Writer, fn RenderFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BoundaryOK {
		var buf bytes.Buffer
		if err := b.capture(&buf, fn); err != nil {
			b.state = BoundaryErrored
			b.cause = err
		} else {
			_, err := buf.WriteTo(w)
			return err
		}
	}
	_, err := io.WriteString(w, fallbackHTML(b.label))
	return err
}

// HTML renders into a template.HTML value for composition in a layout.
func (b *Boundary) HTML(fn RenderFunc) template.HTML {
	var buf bytes.Buffer
	_ = b.Render(&buf, fn)
	return template.HTML(buf.String())
}

func (b *Boundary) capture(w io.Writer, fn RenderFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			b.logger.Error("section panicked", "section", b.label, "error", err, "stack", string(debug.Stack()))
		}
	}()
	if err := fn(w); err != nil {
		b.logger.Error("section failed to render", "section", b.label, "error", err, "stack", string(debug.Stack()))
		return err
	}
	return nil
}

func fallbackHTML(label string) string {
	return `<section class="section-error" role="alert"><p>Something went wrong loading the ` +
		template.HTMLEscapeString(label) +
		` section.</p><a href="" onclick="window.location.reload(); return false;">Reload the page</a></section>`
}
