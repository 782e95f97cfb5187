// Package persist maps the resume document to and from a single slot of the
// local key/value store.
package persist

import (
	"errors"
	"log/slog"

	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/storage"
)

// StorageKey is the slot the resume document lives in.
const StorageKey = "profile_ai_resume_data"

// errUnavailable is logged when the gateway has no backing store.
var errUnavailable = errors.New("local storage unavailable")

// KeyValueStore is the durable local store. Implemented by storage.Store.
// GetItem returns storage.ErrNotFound for a missing key.
type KeyValueStore interface {
	SetItem(key, value string) error
	GetItem(key string) (string, error)
	RemoveItem(key string) error
}

// Gateway saves, loads and clears the resume document. None of its methods
// fail: storage problems are logged and the caller keeps its in-memory copy.
type Gateway struct {
	store  KeyValueStore
	logger *slog.Logger
}

// NewGateway creates a Gateway over store. A nil store behaves as
// storage that rejects every write and holds nothing.
func NewGateway(store KeyValueStore) *Gateway {
	return &Gateway{
		store:  store,
		logger: slog.Default(),
	}
}

// WithLogger returns a copy of g that logs to logger.
func (g *Gateway) WithLogger(logger *slog.Logger) *Gateway {
	cp := *g
	cp.logger = logger
	return &cp
}

// Save writes doc to the storage slot, overwriting any previous value.
func (g *Gateway) Save(doc resume.Document) {
	if g.store == nil {
		g.logger.Warn("resume not saved", "key", StorageKey, "error", errUnavailable)
		return
	}
	data, err := resume.Encode(doc)
	if err != nil {
		g.logger.Error("resume not saved", "key", StorageKey, "error", err)
		return
	}
	if err := g.store.SetItem(StorageKey, string(data)); err != nil {
		g.logger.Error("resume not saved", "key", StorageKey, "error", err)
		return
	}
	g.logger.Debug("resume saved", "key", StorageKey, "bytes", len(data))
}

// Load reads the stored document. The second result is false when nothing
// usable is stored, including when the stored text does not parse; the
// document is then DefaultDocument().
func (g *Gateway) Load() (resume.Document, bool) {
	if g.store == nil {
		return DefaultDocument(), false
	}
	raw, err := g.store.GetItem(StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultDocument(), false
	}
	if err != nil {
		g.logger.Error("reading resume failed", "key", StorageKey, "error", err)
		return DefaultDocument(), false
	}
	doc, err := resume.Decode([]byte(raw))
	if err != nil {
		g.logger.Warn("stored resume is malformed, ignoring", "key", StorageKey, "error", err)
		return DefaultDocument(), false
	}
	return doc, true
}

// Clear removes the stored document. Clearing an empty slot is not an error.
func (g *Gateway) Clear() {
	if g.store == nil {
		return
	}
	if err := g.store.RemoveItem(StorageKey); err != nil {
		g.logger.Error("clearing resume failed", "key", StorageKey, "error", err)
		return
	}
	g.logger.Debug("resume cleared", "key", StorageKey)
}

// DefaultDocument returns the empty document used when nothing is stored.
func DefaultDocument() resume.Document {
	return resume.Default()
}
