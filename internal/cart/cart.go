// Package cart holds a shopper's in-progress selection and keeps it persisted.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/amogham/storefront/internal/pricing"
	"github.com/amogham/storefront/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StorageKey is the single key the whole cart is persisted under.
const StorageKey = "cart"

// ErrInvalidQuantity is returned when adding a non-positive quantity.
var ErrInvalidQuantity = errors.New("quantity must be > 0")

// Item is one (product, size) line of the cart.
type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Size      string          `json:"size"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is UnitPrice * Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemID builds the composite identity of a cart line.
func ItemID(productID, size string) string {
	return productID + "-" + size
}

// Store owns one cart. Every mutation is written through to storage;
// storage failures are logged and never surface to the caller.
type Store struct {
	mu      sync.Mutex
	items   []Item
	storage storage.Storage
	logger  *zap.Logger
}

// New creates a Store and restores any cart previously persisted in s.
// A missing or unreadable value starts an empty cart.
func New(ctx context.Context, s storage.Storage, logger *zap.Logger) *Store {
	st := &Store{storage: s, logger: logger}
	st.items = st.load(ctx)
	return st
}

func (s *Store) load(ctx context.Context) []Item {
	data, err := s.storage.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("load cart", zap.Error(err))
		return nil
	}

	items, err := Decode(data)
	if err != nil {
		s.logger.Warn("parse stored cart, starting empty", zap.Error(err))
		return nil
	}
	return items
}

// persist writes the cart. Caller must hold s.mu.
func (s *Store) persist(ctx context.Context) {
	data, err := Encode(s.items)
	if err != nil {
		s.logger.Error("encode cart", zap.Error(err))
		return
	}
	if err := s.storage.Set(ctx, StorageKey, data); err != nil {
		s.logger.Error("save cart", zap.Error(err))
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// AddToCart adds qty of the product's variant. An existing line with the same
// (product, size) identity has qty added to it; otherwise a new line is appended.
func (s *Store) AddToCart(ctx context.Context, p pricing.Product, v pricing.Variant, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := ItemID(p.ID, v.Size)
	if i := s.indexOf(id); i >= 0 {
		s.items[i].Quantity += qty
	} else {
		s.items = append(s.items, Item{
			ID:        id,
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Size:      v.Size,
			UnitPrice: v.Price,
			Quantity:  qty,
		})
	}
	s.persist(ctx)
	return nil
}

// RemoveFromCart drops the line. Unknown ids are ignored.
func (s *Store) RemoveFromCart(ctx context.Context, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(ctx, itemID)
}

func (s *Store) remove(ctx context.Context, itemID string) {
	i := s.indexOf(itemID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist(ctx)
}

// UpdateQuantity replaces the line's quantity; zero or less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		s.remove(ctx, itemID)
		return
	}
	i := s.indexOf(itemID)
	if i < 0 {
		return
	}
	s.items[i].Quantity = qty
	s.persist(ctx)
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persist(ctx)
}

// Total is the sum of unit price times quantity over all lines.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Count is the total number of units in the cart.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Len is the number of distinct lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns the line with the given id.
func (s *Store) Item(itemID string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(itemID); i >= 0 {
		return s.items[i], true
	}
	return Item{}, false
}

// Encode serializes items as the persisted JSON array.
func Encode(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(items)
}

// Decode parses a persisted cart, dropping lines that would break the
// one-line-per-identity or positive-quantity rules.
func Decode(data []byte) ([]Item, error) {
	var raw []Item
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, it := range raw {
		if it.Quantity <= 0 || it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		items = append(items, it)
	}
	return items, nil
}
