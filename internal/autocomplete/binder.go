package autocomplete

import (
	"context"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultSelector is the marker that opts an input into autocomplete
const DefaultSelector = ".ingredient-input"

// Suggester looks up suggestions for a query
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// Binder attaches suggestion lookups to inputs
type Binder struct {
	suggester Suggester
	opts      Options
	logger    *zap.Logger
}

// BinderOption configures a Binder
type BinderOption func(*Binder)

// WithOptions replaces DefaultOptions as a whole for every bound field.
// Fields left zero stay zero, so Options{MinChars: 3} turns AutoFirst off.
// Use WithMinChars to change only the threshold.
func WithOptions(opts Options) BinderOption {
	return func(b *Binder) { b.opts = opts.normalized() }
}

// WithMinChars sets the lookup threshold and keeps the other options
func WithMinChars(n int) BinderOption {
	return func(b *Binder) {
		b.opts.MinChars = n
		b.opts = b.opts.normalized()
	}
}

// WithLogger sets the logger used to report dropped lookups
func WithLogger(logger *zap.Logger) BinderOption {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBinder creates a binder issuing lookups through suggester
func NewBinder(suggester Suggester, opts ...BinderOption) *Binder {
	b := &Binder{
		suggester: suggester,
		opts:      DefaultOptions(),
		logger:    zap.NewNop(),
	}
	for _, fn := range opts {
		fn(b)
	}
	return b
}

// Bind creates one field per element of doc matching selector. An empty
// selector means DefaultSelector. Inputs added to doc later are not bound.
func (b *Binder) Bind(doc *goquery.Document, selector string) []*Field {
	if doc == nil {
		return nil
	}
	if selector == "" {
		selector = DefaultSelector
	}

	var fields []*Field
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		if name == "" {
			name, _ = s.Attr("id")
		}
		fields = append(fields, b.BindInput(name))
	})
	return fields
}

// BindInput creates a field for a single input identified by name
func (b *Binder) BindInput(name string) *Field {
	return &Field{
		Name:      name,
		widget:    NewWidget(b.opts),
		suggester: b.suggester,
		logger:    b.logger.With(zap.String("input", name)),
	}
}

// Field is one input with its widget. Input may be called from any
// goroutine; lookups run concurrently and are ordered by generation.
type Field struct {
	Name string

	widget    *Widget
	suggester Suggester
	logger    *zap.Logger

	mu     sync.Mutex
	issued uint64

	wg sync.WaitGroup
}

// Widget returns the field's suggestion widget
func (f *Field) Widget() *Widget {
	return f.widget
}

// Input handles a change of the input's value. Values shorter than
// MinChars are ignored: nothing is requested and the current list stays.
// Otherwise one lookup is started and Input returns true. When it completes
// its result replaces the list only if no newer lookup was started since;
// failures leave the list untouched.
func (f *Field) Input(ctx context.Context, value string) bool {
	if utf8.RuneCountInString(value) < f.widget.opts.MinChars {
		return false
	}

	f.mu.Lock()
	f.issued++
	gen := f.issued
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()

		list, err := f.suggester.Suggest(ctx, value)
		if err != nil {
			f.logger.Debug("suggestion lookup failed",
				zap.String("query", value), zap.Uint64("generation", gen), zap.Error(err))
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if gen != f.issued {
			f.logger.Debug("discarding stale suggestions",
				zap.String("query", value), zap.Uint64("generation", gen), zap.Uint64("latest", f.issued))
			return
		}
		f.widget.SetList(list)
	}()

	return true
}

// Generation returns the number of lookups issued so far
func (f *Field) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issued
}

// Wait blocks until every lookup started by Input has completed
func (f *Field) Wait() {
	f.wg.Wait()
}
