// Package cart holds the shopping-cart state machine and its persistence bridge.
package cart

import (
	"sync"

	"sickbeasts-storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// State is an immutable snapshot of a cart.
type State struct {
	Items    []domain.LineItem `json:"items"`
	CartOpen bool              `json:"cartOpen"`
}

// TotalItems sums quantities. It is recomputed on every call.
func (s State) TotalItems() int {
	total := 0
	for _, it := range s.Items {
		total += it.Quantity
	}
	return total
}

// TotalPrice sums price*quantity. It is recomputed on every call.
func (s State) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Change is delivered to listeners after every operation.
type Change struct {
	State        State
	ItemsChanged bool
	// Revision increases by one per operation. Listeners may see changes
	// out of order when operations race; a higher revision is newer.
	Revision uint64
}

// Listener observes store changes. Listeners run synchronously after the
// store lock is released, in subscription order.
type Listener func(Change)

// Store is the cart state machine. The zero value is not usable; call NewStore.
type Store struct {
	mu        sync.Mutex
	items     []domain.LineItem
	open      bool
	listeners []listenerEntry
	nextID    int
	revision  uint64
}

type listenerEntry struct {
	id int
	fn Listener
}

func NewStore() *Store {
	return &Store{items: []domain.LineItem{}}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// AddItem merges item into the line with the same (id, size) by adding its
// quantity, or appends it as a new line. Items that would leave a line below
// quantity 1, or carry a negative price, are ignored.
func (s *Store) AddItem(item domain.LineItem) {
	s.apply(func() bool {
		if item.Price.IsNegative() || item.Quantity < 0 {
			return false
		}
		if i := s.indexOf(item.ID, item.Size); i >= 0 {
			if item.Quantity == 0 {
				return false
			}
			s.items[i].Quantity += item.Quantity
			return true
		}
		if item.Quantity < 1 {
			return false
		}
		s.items = append(s.items, item)
		return true
	})
}

// RemoveItem drops the matching line. Unknown keys are a no-op.
func (s *Store) RemoveItem(id domain.ProductID, size string) {
	s.apply(func() bool {
		i := s.indexOf(id, size)
		if i < 0 {
			return false
		}
		s.items = append(s.items[:i:i], s.items[i+1:]...)
		return true
	})
}

// UpdateQuantity sets the quantity of the matching line. Quantities below 1
// are clamped to 1; removing a line is RemoveItem's job.
func (s *Store) UpdateQuantity(id domain.ProductID, size string, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	s.apply(func() bool {
		i := s.indexOf(id, size)
		if i < 0 || s.items[i].Quantity == quantity {
			return false
		}
		s.items[i].Quantity = quantity
		return true
	})
}

// ToggleCart flips the visibility flag.
func (s *Store) ToggleCart() {
	s.apply(func() bool {
		s.open = !s.open
		return false
	})
}

// ClearCart empties the item list and keeps the visibility flag.
func (s *Store) ClearCart() {
	s.apply(func() bool {
		if len(s.items) == 0 {
			return false
		}
		s.items = []domain.LineItem{}
		return true
	})
}

// apply runs op under the lock; op reports whether the item list changed.
func (s *Store) apply(op func() bool) {
	s.mu.Lock()
	changed := op()
	s.revision++
	change := Change{State: s.snapshot(), ItemsChanged: changed, Revision: s.revision}
	listeners := make([]Listener, len(s.listeners))
	for i, l := range s.listeners {
		listeners[i] = l.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (s *Store) indexOf(id domain.ProductID, size string) int {
	for i, it := range s.items {
		if it.Matches(id, size) {
			return i
		}
	}
	return -1
}

func (s *Store) snapshot() State {
	items := make([]domain.LineItem, len(s.items))
	copy(items, s.items)
	return State{Items: items, CartOpen: s.open}
}
