// Package autocomplete binds live ingredient suggestions to text inputs. Each
// keystroke issues one lookup against the suggestion endpoint; only the
// response to the most recent keystroke may replace a widget's list.
package autocomplete

import "sync"

// Options configures a widget
type Options struct {
	// MinChars is the shortest value that triggers a lookup. Values below 1
	// are raised to 1 so an empty query is never sent.
	MinChars int
	// AutoFirst highlights the first suggestion of every new list.
	AutoFirst bool
}

// DefaultOptions returns the options used by the recipe form inputs
func DefaultOptions() Options {
	return Options{MinChars: 1, AutoFirst: true}
}

func (o Options) normalized() Options {
	if o.MinChars < 1 {
		o.MinChars = 1
	}
	return o
}

// Widget holds the suggestion list displayed under one input
type Widget struct {
	opts Options

	mu   sync.RWMutex
	list []string
}

// NewWidget creates a widget with an empty list
func NewWidget(opts Options) *Widget {
	return &Widget{opts: opts.normalized()}
}

// Options returns the widget configuration
func (w *Widget) Options() Options {
	return w.opts
}

// SetList replaces the suggestion list in full
func (w *Widget) SetList(list []string) {
	cp := make([]string, len(list))
	copy(cp, list)

	w.mu.Lock()
	w.list = cp
	w.mu.Unlock()
}

// List returns a copy of the current suggestion list
func (w *Widget) List() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cp := make([]string, len(w.list))
	copy(cp, w.list)
	return cp
}

// Highlighted returns the suggestion selected by default, if any
func (w *Widget) Highlighted() (string, bool) {
	if !w.opts.AutoFirst {
		return "", false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.list) == 0 {
		return "", false
	}
	return w.list[0], true
}
