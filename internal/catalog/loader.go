package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/whsiao/tariffcompare/internal/storage"
)

//go:embed plans.json
var defaultPlansJSON []byte

// Source supplies the raw catalog document.
type Source interface {
	// Name identifies the source; it doubles as the snapshot key in storage.
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
}

// FileSource reads the catalog document from the filesystem.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	payload, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCatalogLoad, s.Path, err)
	}
	return payload, nil
}

// EmbeddedSource serves the catalog document bundled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Name() string { return "embedded" }

func (EmbeddedSource) Fetch(ctx context.Context) ([]byte, error) {
	return defaultPlansJSON, nil
}

// Loader owns the load-once catalog cache. The mutex is held for the whole
// load, so concurrent callers during an in-flight load block and then reuse
// the same result instead of re-fetching. Invalidate forces the next access
// to reload.
type Loader struct {
	source Source
	store  storage.Storage // may be nil

	mu     sync.Mutex
	cached *Catalog
}

// Option configures a Loader.
type Option func(*Loader)

// WithStorage enables snapshot caching: loads consult storage first and
// write fresh documents back best-effort.
func WithStorage(st storage.Storage) Option {
	return func(l *Loader) { l.store = st }
}

func NewLoader(source Source, opts ...Option) *Loader {
	l := &Loader{source: source}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Default returns a loader over the embedded catalog document.
func Default() *Loader {
	return NewLoader(EmbeddedSource{})
}

// Catalog returns the loaded catalog, loading it on first use.
func (l *Loader) Catalog(ctx context.Context) (*Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil {
		return l.cached, nil
	}
	cat, err := l.load(ctx, false)
	if err != nil {
		return nil, err
	}
	l.cached = cat
	return cat, nil
}

// Invalidate drops the cached catalog so the next access reloads.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}

// Refresh fetches the document from the source, bypassing any stored
// snapshot, and replaces the cache.
func (l *Loader) Refresh(ctx context.Context) (*Catalog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cat, err := l.load(ctx, true)
	if err != nil {
		return nil, err
	}
	l.cached = cat
	return cat, nil
}

func (l *Loader) load(ctx context.Context, bypassSnapshot bool) (*Catalog, error) {
	if l.store != nil && !bypassSnapshot {
		snap, err := l.store.GetCatalogSnapshot(ctx, l.source.Name())
		if err == nil && snap != nil && len(snap.Payload) > 0 {
			if cat, err := Parse(snap.Payload); err == nil {
				return cat, nil
			}
			// Stale or malformed snapshot: fall through to the source.
		}
	}

	payload, err := l.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateDocument(payload); err != nil {
		return nil, err
	}
	cat, err := Parse(payload)
	if err != nil {
		return nil, err
	}

	if l.store != nil {
		err := l.store.SaveCatalogSnapshot(ctx, storage.CatalogSnapshot{
			Source:    l.source.Name(),
			Version:   cat.Version,
			Payload:   payload,
			FetchedAt: time.Now(),
		})
		if err != nil {
			log.Printf("catalog: snapshot write-back failed: %v", err)
		}
	}
	return cat, nil
}
