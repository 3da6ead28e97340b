package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/tennis-alerts/internal/metrics"
)

// ErrCorrupt marks a stored document that could not be decoded.
var ErrCorrupt = errors.New("store document corrupt")

// Backend reads and writes the raw document bytes. Read returns (nil, nil)
// when nothing has been stored yet.
type Backend interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Repository serializes all access to the document.
type Repository struct {
	mu      sync.Mutex
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// NewRepository wraps a backend.
func NewRepository(backend Backend, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{backend: backend, logger: logger, now: time.Now}
}

// Backend returns the backend name for health reporting.
func (r *Repository) Backend() string {
	return r.backend.Name()
}

// Load returns the current document.
func (r *Repository) Load(ctx context.Context) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Update loads the document, applies fn and saves the result, all under the
// store lock. If fn returns an error nothing is written.
func (r *Repository) Update(ctx context.Context, fn func(doc *Document) error) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := r.save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Ping verifies the backend is readable.
func (r *Repository) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.backend.Read(ctx)
	return err
}

func (r *Repository) load(ctx context.Context) (*Document, error) {
	data, err := r.backend.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store (%s): %w", r.backend.Name(), err)
	}
	if len(data) == 0 {
		return Default(), nil
	}

	doc, err := Decode(data)
	if err != nil {
		// Unreadable state is replaced by an empty store.
		r.logger.Error("Store unreadable, resetting to defaults",
			"backend", r.backend.Name(), "bytes", len(data), "error", fmt.Errorf("%w: %v", ErrCorrupt, err))
		metrics.StoreResets.Inc()
		doc = Default()
		doc.AddHistory(r.now(), LevelWarning, "Stored state was unreadable and has been reset",
			map[string]interface{}{"backend": r.backend.Name(), "error": err.Error()})
		if err := r.save(ctx, doc); err != nil {
			r.logger.Error("Failed to write reset store", "backend", r.backend.Name(), "error", err)
		}
	}
	return doc, nil
}

func (r *Repository) save(ctx context.Context, doc *Document) error {
	doc.fill()
	doc.UpdatedAt = r.now().UTC()
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := r.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("write store (%s): %w", r.backend.Name(), err)
	}
	return nil
}
