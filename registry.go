package quiver

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Collection is a named, independently searchable embedding index tied to one
// document and one chunking mode. Immutable after registration; the only
// lifecycle transition is removal via Registry.Clear.
type Collection struct {
	Name       string
	DocumentID string
	Mode       ChunkMode
	Index      *Index
	CreatedAt  int64
}

// Registry is the process-wide mapping from collection name to collection.
// It is the only shared mutable state in the engine.
//
// Concurrent GetOrCreate calls for the same (document, mode) key coalesce
// onto a single in-flight build: all callers receive the same Collection or
// the same build error. Failures are not cached, so a later call retries.
//
// Clear policy: collections are immutable, so Clear merely unlinks the name.
// Searches already holding the *Collection finish against that snapshot;
// subsequent Resolve calls fail with not-found. Partially cleared state is
// never observable.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
	group       singleflight.Group
	logger      *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets a structured logger for registry lifecycle events.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		collections: make(map[string]*Collection),
		logger:      nopLogger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// BuildFunc constructs the collection for a key on first use. It must not
// assume any registry lock is held — builds run outside all locks so that
// long embedding calls never block reads.
type BuildFunc func(ctx context.Context) (*Collection, error)

// GetOrCreate returns the collection for (documentID, mode), invoking build
// at most once per key even under concurrent callers. The derived collection
// name is stable, so repeated processing of the same document and mode is
// idempotent.
func (r *Registry) GetOrCreate(ctx context.Context, documentID string, mode ChunkMode, build BuildFunc) (*Collection, error) {
	name := CollectionName(documentID, mode)

	r.mu.RLock()
	col, ok := r.collections[name]
	r.mu.RUnlock()
	if ok {
		return col, nil
	}

	v, err, shared := r.group.Do(name, func() (any, error) {
		// Recheck after winning the flight: another flight may have
		// registered the collection between our fast path and here.
		r.mu.RLock()
		existing, ok := r.collections[name]
		r.mu.RUnlock()
		if ok {
			return existing, nil
		}

		built, err := build(ctx)
		if err != nil {
			return nil, err
		}
		built.Name = name
		built.DocumentID = documentID
		built.Mode = mode
		if built.CreatedAt == 0 {
			built.CreatedAt = NowUnix()
		}

		r.mu.Lock()
		r.collections[name] = built
		r.mu.Unlock()

		r.logger.Debug("registry: collection built",
			"name", name, "document_id", documentID, "mode", mode.String(),
			"chunks", built.Index.Len())
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("registry: build coalesced", "name", name)
	}
	return v.(*Collection), nil
}

// Resolve returns the collection registered under name.
func (r *Registry) Resolve(name string) (*Collection, error) {
	r.mu.RLock()
	col, ok := r.collections[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &ErrNotFound{Collection: name}
	}
	return col, nil
}

// Register inserts a pre-built collection, replacing any previous entry with
// the same name. Used when reloading persisted collections at startup.
func (r *Registry) Register(col *Collection) {
	r.mu.Lock()
	r.collections[col.Name] = col
	r.mu.Unlock()
}

// Clear removes a collection. Clearing an unknown name is a no-op.
func (r *Registry) Clear(name string) {
	r.mu.Lock()
	_, existed := r.collections[name]
	delete(r.collections, name)
	r.mu.Unlock()
	if existed {
		r.logger.Debug("registry: collection cleared", "name", name)
	}
}

// Names returns the registered collection names, in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collections))
	for n := range r.collections {
		names = append(names, n)
	}
	return names
}
