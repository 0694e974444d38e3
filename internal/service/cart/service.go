package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sickbeasts-storefront/internal/cart"
	"sickbeasts-storefront/internal/catalog"
	"sickbeasts-storefront/internal/domain"
	"sickbeasts-storefront/internal/repository/browserstore"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	minSweepInterval  = time.Minute
)

var (
	// ErrInvalidQuantity is returned for negative quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrSizeRequired is returned when no size is given.
	ErrSizeRequired = errors.New("size required")
	// ErrSizeUnavailable is returned when the product is not offered in the size.
	ErrSizeUnavailable = errors.New("size not available for product")
	// ErrOutOfStock is returned when the product cannot be bought.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrProductNotFound is returned when the product id is unknown.
	ErrProductNotFound = errors.New("product not found")
)

type productLookup interface {
	GetProductByID(ctx context.Context, id string) (domain.Product, error)
}

type storageRepo interface {
	Area(sessionID string) browserstore.Area
}

// storageDropper is implemented by storage that cannot expire keys itself.
type storageDropper interface {
	Drop(sessionID string)
}

// Options tune session handling. Zero values mean defaults.
type Options struct {
	SessionTTL     time.Duration
	IndicatorDelay time.Duration
}

// Service owns one cart store per browser session.
type Service struct {
	products       productLookup
	storage        storageRepo
	sessions       *sessionRegistry
	ttl            time.Duration
	indicatorDelay time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func New(products productLookup, storage storageRepo, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	delay := opts.IndicatorDelay
	if delay <= 0 {
		delay = cart.DefaultIndicatorDelay
	}
	var onExpire func(string)
	if d, ok := storage.(storageDropper); ok {
		onExpire = d.Drop
	}
	return &Service{
		products:       products,
		storage:        storage,
		sessions:       newSessionRegistry(ttl, onExpire),
		ttl:            ttl,
		indicatorDelay: delay,
		logger:         logger.Named("cart"),
		now:            time.Now,
	}
}

// View is the cart as served to clients.
type View struct {
	Items       []domain.LineItem `json:"items"`
	CartOpen    bool              `json:"cartOpen"`
	TotalItems  int               `json:"totalItems"`
	TotalPrice  decimal.Decimal   `json:"totalPrice"`
	AddedToCart bool              `json:"addedToCart"`
}

type AddInput struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateInput struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// Session returns the live session for id, rehydrating it from browser
// storage on first use. A blank or malformed id starts a new session.
func (s *Service) Session(ctx context.Context, id string) *Session {
	now := s.now()
	if parsed, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		id = uuid.NewString()
	} else {
		id = parsed.String()
		if sess, ok := s.sessions.lookup(id, now); ok {
			return sess
		}
	}

	store := cart.NewStore()
	sess := &Session{
		ID:        id,
		Store:     store,
		indicator: cart.NewIndicator(s.indicatorDelay),
		bridge:    cart.Attach(ctx, store, s.storage.Area(id), s.logger),
		lastSeen:  now,
	}
	s.logger.Debug("cart session opened", zap.String("session", id), zap.Int("items", store.State().TotalItems()))
	return s.sessions.add(sess)
}

// Snapshot renders the session's current state.
func (s *Service) Snapshot(sess *Session) View {
	st := sess.Store.State()
	return View{
		Items:       st.Items,
		CartOpen:    st.CartOpen,
		TotalItems:  st.TotalItems(),
		TotalPrice:  st.TotalPrice(),
		AddedToCart: sess.AddedToCart(),
	}
}

// AddItem looks the product up and adds it with the catalog's name and price.
func (s *Service) AddItem(ctx context.Context, sess *Session, in AddInput) (View, error) {
	productID := strings.TrimSpace(in.ProductID)
	size := strings.ToUpper(strings.TrimSpace(in.Size))
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return View{}, ErrInvalidQuantity
	}
	if size == "" {
		return View{}, ErrSizeRequired
	}
	product, err := s.products.GetProductByID(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, catalog.ErrInvalidDocument) {
		return View{}, ErrProductNotFound
	}
	if err != nil {
		return View{}, fmt.Errorf("add item: %w", err)
	}
	if !product.HasSize(size) {
		return View{}, ErrSizeUnavailable
	}
	if !product.InStock {
		return View{}, ErrOutOfStock
	}

	sess.Store.AddItem(domain.LineItem{
		ID:       domain.ProductID(product.ID),
		Name:     product.Name,
		Price:    product.Price,
		Size:     size,
		Quantity: qty,
	})
	sess.indicator.Trigger()
	return s.Snapshot(sess), nil
}

// UpdateQuantity sets a line's quantity; the store clamps values below 1.
func (s *Service) UpdateQuantity(sess *Session, in UpdateInput) View {
	sess.Store.UpdateQuantity(domain.ProductID(strings.TrimSpace(in.ProductID)), strings.ToUpper(strings.TrimSpace(in.Size)), in.Quantity)
	return s.Snapshot(sess)
}

func (s *Service) RemoveItem(sess *Session, productID, size string) View {
	sess.Store.RemoveItem(domain.ProductID(strings.TrimSpace(productID)), strings.ToUpper(strings.TrimSpace(size)))
	return s.Snapshot(sess)
}

func (s *Service) Toggle(sess *Session) View {
	sess.Store.ToggleCart()
	return s.Snapshot(sess)
}

func (s *Service) Clear(sess *Session) View {
	sess.Store.ClearCart()
	return s.Snapshot(sess)
}

// Run expires idle sessions until ctx is done, then closes every session.
func (s *Service) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.sessions.closeAll()
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired cart sessions", zap.Int("count", n))
			}
		}
	}
}

// Sweep closes sessions idle for longer than the TTL and reports how many.
func (s *Service) Sweep() int {
	return s.sessions.sweep(s.now())
}

// ActiveSessions reports how many sessions are held in memory.
func (s *Service) ActiveSessions() int {
	return s.sessions.count()
}
