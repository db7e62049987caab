package embedding

import (
	"context"
	"sync"
)

// Lazy defers construction of an expensive embedder (the ONNX model takes
// seconds to load) until the first embedding call, then reuses the one
// instance for the life of the process. Initialization happens exactly once
// even under concurrent first calls; a failed initialization is returned to
// every caller rather than retried.
type Lazy struct {
	construct  func() (Embedder, error)
	dimensions int

	once     sync.Once
	delegate Embedder
	initErr  error
}

// NewLazy wraps construct. dimensions must match what the constructed
// embedder will report, so callers can size storage before the model loads.
func NewLazy(dimensions int, construct func() (Embedder, error)) *Lazy {
	return &Lazy{construct: construct, dimensions: dimensions}
}

func (l *Lazy) get() (Embedder, error) {
	l.once.Do(func() {
		l.delegate, l.initErr = l.construct()
	})
	return l.delegate, l.initErr
}

// EmbedPassages initializes the delegate on first use and forwards to it.
func (l *Lazy) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, err
	}
	return e.EmbedPassages(ctx, texts)
}

// EmbedQuery initializes the delegate on first use and forwards to it.
func (l *Lazy) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e, err := l.get()
	if err != nil {
		return nil, err
	}
	return e.EmbedQuery(ctx, text)
}

// Dimensions returns the configured dimensionality without loading the model.
func (l *Lazy) Dimensions() int {
	return l.dimensions
}

// Close closes the delegate if it was ever constructed.
func (l *Lazy) Close() error {
	if l.delegate != nil {
		return l.delegate.Close()
	}
	return nil
}
