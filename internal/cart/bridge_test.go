package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"sickbeasts-storefront/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	setCall int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: map[string][]byte{}}
}

func (f *fakeStorage) GetItem(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.data[key], nil
}

func (f *fakeStorage) SetItem(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCall++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = append([]byte(nil), value...)
	return nil
}

func (f *fakeStorage) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCall
}

func TestBridge_PersistAndRehydrate(t *testing.T) {
	ctx := context.Background()
	storage := newFakeStorage()

	first := NewStore()
	b := Attach(ctx, first, storage, nil)
	first.AddItem(item("1", "M", 2, "29.99"))
	first.AddItem(item("2", "L", 1, "32.99"))
	b.Detach()

	second := NewStore()
	Attach(ctx, second, storage, nil)

	got := second.State().Items
	want := first.State().Items
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Size, got[i].Size)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.True(t, want[i].Price.Equal(got[i].Price))
	}
}

func TestBridge_RehydrateLegacyNumericIDs(t *testing.T) {
	storage := newFakeStorage()
	storage.data[StorageKey] = []byte(`{"items":[{"id":1,"name":"A","price":29.99,"size":"M","quantity":2},{"id":2,"name":"B","price":32.99,"size":"L","quantity":1}]}`)

	s := NewStore()
	Attach(context.Background(), s, storage, nil)

	items := s.State().Items
	require.Len(t, items, 2)
	assert.Equal(t, domain.ProductID("1"), items[0].ID)
	assert.Equal(t, "M", items[0].Size)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, domain.ProductID("2"), items[1].ID)
	assert.Equal(t, 1, items[1].Quantity)
	assert.Zero(t, storage.calls(), "rehydration must not write back")
}

func TestBridge_RehydrateMergesDuplicates(t *testing.T) {
	storage := newFakeStorage()
	storage.data[StorageKey] = []byte(`{"items":[{"id":"p1","price":"10","size":"M","quantity":1},{"id":"p1","price":"10","size":"M","quantity":2}]}`)

	s := NewStore()
	Attach(context.Background(), s, storage, nil)

	items := s.State().Items
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

func TestBridge_BadStorageStartsEmpty(t *testing.T) {
	cases := map[string]*fakeStorage{
		"absent":  newFakeStorage(),
		"garbage": {data: map[string][]byte{StorageKey: []byte("{not json")}},
		"empty":   {data: map[string][]byte{StorageKey: {}}},
		"error":   {data: map[string][]byte{}, getErr: errors.New("storage disabled")},
	}
	for name, storage := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewStore()
			Attach(context.Background(), s, storage, nil)
			assert.Empty(t, s.State().Items)
		})
	}
}

func TestBridge_WritesOnlyOnItemChanges(t *testing.T) {
	storage := newFakeStorage()
	s := NewStore()
	Attach(context.Background(), s, storage, nil)

	s.ToggleCart()
	s.RemoveItem("missing", "M")
	assert.Zero(t, storage.calls())

	s.AddItem(item("p1", "M", 1, "10"))
	s.UpdateQuantity("p1", "M", 3)
	s.ClearCart()
	assert.Equal(t, 3, storage.calls())
	assert.JSONEq(t, `{"items":[]}`, string(storage.data[StorageKey]))
}

func TestBridge_WriteFailureKeepsMemoryState(t *testing.T) {
	storage := newFakeStorage()
	storage.setErr = errors.New("quota exceeded")
	s := NewStore()
	Attach(context.Background(), s, storage, nil)

	s.AddItem(item("p1", "M", 2, "10"))
	s.AddItem(item("p1", "M", 1, "10"))

	items := s.State().Items
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 2, storage.calls())
}

func TestBridge_DetachStopsWrites(t *testing.T) {
	storage := newFakeStorage()
	s := NewStore()
	b := Attach(context.Background(), s, storage, nil)
	b.Detach()
	b.Detach()

	s.AddItem(item("p1", "M", 1, "10"))
	assert.Zero(t, storage.calls())
}

func TestBridge_SavesAfterAttachContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	storage := newFakeStorage()
	s := NewStore()
	Attach(ctx, s, storage, nil)
	cancel()

	s.AddItem(item("p1", "M", 1, "10"))
	assert.Equal(t, 1, storage.calls())
}

// gatedStorage blocks the first SetItem until release is closed.
type gatedStorage struct {
	*fakeStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStorage) SetItem(ctx context.Context, key string, value []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.fakeStorage.SetItem(ctx, key, value)
}

func persistedQuantity(t *testing.T, f *fakeStorage, id, size string) int {
	t.Helper()
	f.mu.Lock()
	raw := f.data[StorageKey]
	f.mu.Unlock()
	var saved persistedCart
	require.NoError(t, json.Unmarshal(raw, &saved))
	for _, it := range saved.Items {
		if it.Matches(domain.ProductID(id), size) {
			return it.Quantity
		}
	}
	return 0
}

func TestBridge_ConcurrentWritesKeepNewestState(t *testing.T) {
	storage := &gatedStorage{
		fakeStorage: newFakeStorage(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	s := NewStore()
	Attach(context.Background(), s, storage, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.AddItem(item("p1", "M", 1, "10"))
	}()
	select {
	case <-storage.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("first write never started")
	}

	go func() {
		defer wg.Done()
		s.AddItem(item("p1", "M", 1, "10"))
	}()
	require.Eventually(t, func() bool {
		items := s.State().Items
		return len(items) == 1 && items[0].Quantity == 2
	}, 2*time.Second, time.Millisecond)

	close(storage.release)
	wg.Wait()

	assert.Equal(t, 2, persistedQuantity(t, storage.fakeStorage, "p1", "M"))
}

func TestBridge_DropsOutOfOrderChanges(t *testing.T) {
	storage := newFakeStorage()
	b := Attach(context.Background(), NewStore(), storage, nil)

	newer := State{Items: []domain.LineItem{item("p1", "M", 2, "10")}}
	older := State{Items: []domain.LineItem{item("p1", "M", 1, "10")}}
	b.onChange(Change{State: newer, ItemsChanged: true, Revision: 2})
	b.onChange(Change{State: older, ItemsChanged: true, Revision: 1})

	assert.Equal(t, 1, storage.calls())
	assert.Equal(t, 2, persistedQuantity(t, storage, "p1", "M"))
}
