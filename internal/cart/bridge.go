package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sickbeasts-storefront/internal/domain"

	"go.uber.org/zap"
)

// StorageKey is the browser storage key the item list is persisted under.
const StorageKey = "cart"

const saveTimeout = 2 * time.Second

// Storage is the per-browser key/value area a cart persists into.
// GetItem returns nil data and a nil error when the key is absent.
type Storage interface {
	GetItem(ctx context.Context, key string) ([]byte, error)
	SetItem(ctx context.Context, key string, value []byte) error
}

type persistedCart struct {
	Items []domain.LineItem `json:"items"`
}

// Bridge keeps a Store's item list in sync with browser storage.
type Bridge struct {
	store       *Store
	storage     Storage
	logger      *zap.Logger
	base        context.Context
	unsubscribe func()

	// mu serialises writes; written is the newest revision handed to storage.
	mu      sync.Mutex
	written uint64
}

// Attach rehydrates store from storage and then writes the item list back after
// every change to it. Storage problems never fail the call; the cart keeps
// working in memory.
func Attach(ctx context.Context, store *Store, storage Storage, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		store:   store,
		storage: storage,
		logger:  logger.Named("cart.bridge"),
		base:    context.WithoutCancel(ctx),
	}
	b.load(ctx)
	b.unsubscribe = store.Subscribe(b.onChange)
	return b
}

// Detach stops persisting. It is safe to call more than once.
func (b *Bridge) Detach() {
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
}

func (b *Bridge) load(ctx context.Context) {
	raw, err := b.storage.GetItem(ctx, StorageKey)
	if err != nil {
		b.logger.Warn("read persisted cart", zap.Error(err))
		return
	}
	if len(raw) == 0 {
		return
	}
	var saved persistedCart
	if err := json.Unmarshal(raw, &saved); err != nil {
		b.logger.Warn("discard unreadable persisted cart", zap.Error(err))
		return
	}
	for _, item := range saved.Items {
		b.store.AddItem(item)
	}
	b.logger.Debug("cart rehydrated", zap.Int("items", len(saved.Items)))
}

func (b *Bridge) onChange(c Change) {
	if !c.ItemsChanged {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.Revision <= b.written {
		return
	}
	b.written = c.Revision

	raw, err := json.Marshal(persistedCart{Items: c.State.Items})
	if err != nil {
		b.logger.Warn("encode cart", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(b.base, saveTimeout)
	defer cancel()
	if err := b.storage.SetItem(ctx, StorageKey, raw); err != nil {
		b.logger.Warn("persist cart", zap.Error(err))
	}
}
