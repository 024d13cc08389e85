// Package memory is an in-process backend used for demos and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	tables      map[int]models.Table
	products    map[string]models.Product
	categories  map[string]models.Category
	orders      map[string]models.Order
	orderSeq    map[string]int
	submissions map[string]string
	seq         int
}

type Option func(*Store)

// WithClock overrides the clock used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		tables:      map[int]models.Table{},
		products:    map[string]models.Product{},
		categories:  map[string]models.Category{},
		orders:      map[string]models.Order{},
		orderSeq:    map[string]int{},
		submissions: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Backend() store.Backend {
	return store.Backend{
		Catalog: s,
		Tables:  s,
		Orders:  s,
		Close:   func(context.Context) error { return nil },
	}
}

// catalog

func (s *Store) ListActiveProducts(ctx context.Context, categoryID string) ([]models.Product, error) {
	return s.ListProducts(ctx, models.ProductFilter{Status: models.ProductActive, Category_id: categoryID})
}

func (s *Store) ListProducts(_ context.Context, filter models.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, models.ProductNotFound(id)
	}
	return p, nil
}

func (s *Store) CreateProduct(_ context.Context, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Product_id == "" {
		p.Product_id = uuid.NewString()
	}
	p.Created_at = s.now()
	p.Updated_at = p.Created_at
	s.products[p.Product_id] = p
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.Product_id]
	if !ok {
		return models.Product{}, models.ProductNotFound(p.Product_id)
	}
	p.Created_at = existing.Created_at
	p.Updated_at = s.now()
	s.products[p.Product_id] = p
	return p, nil
}

func (s *Store) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, c models.Category) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Category_id == "" {
		c.Category_id = uuid.NewString()
	}
	s.categories[c.Category_id] = c
	return c, nil
}

// tables

func (s *Store) ListTables(_ context.Context) ([]models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table_id < out[j].Table_id })
	return out, nil
}

func (s *Store) GetTable(_ context.Context, id int) (models.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return models.Table{}, models.TableNotFound(id)
	}
	return t, nil
}

func (s *Store) CreateTable(_ context.Context, t models.Table) (models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[t.Table_id]; ok {
		return models.Table{}, models.NewValidationError("table_id", "table %d already exists", t.Table_id)
	}
	if t.Status == "" {
		t.Status = models.TableAvailable
	}
	t.Updated_at = s.now()
	s.tables[t.Table_id] = t
	return t, nil
}

func (s *Store) UpdateTable(_ context.Context, id int, patch models.TablePatch) (models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return models.Table{}, models.TableNotFound(id)
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Total_amount != nil {
		t.Total_amount = *patch.Total_amount
	}
	t.Updated_at = s.now()
	s.tables[id] = t
	return t, nil
}

func (s *Store) AddToBalance(_ context.Context, id int, delta decimal.Decimal) (models.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return models.Table{}, models.TableNotFound(id)
	}
	t.Status = models.TableOccupied
	t.Total_amount = t.Total_amount.Add(delta)
	t.Updated_at = s.now()
	s.tables[id] = t
	return t, nil
}

func (s *Store) CompareAndSwap(_ context.Context, id int, prev, next models.TableState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return false, models.TableNotFound(id)
	}
	if !t.State().Equal(prev) {
		return false, nil
	}
	t.Status = next.Status
	t.Total_amount = next.Total_amount
	t.Updated_at = s.now()
	s.tables[id] = t
	return true, nil
}

// orders

func (s *Store) InsertOrder(_ context.Context, o models.Order) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Submission_id != "" {
		if _, ok := s.submissions[o.Submission_id]; ok {
			return models.Order{}, models.ErrDuplicateSubmission
		}
	}
	if o.Order_id == "" {
		o.Order_id = uuid.NewString()
	}
	if o.Created_at.IsZero() {
		o.Created_at = s.now()
	}
	o.Updated_at = o.Created_at
	items := make([]models.OrderItem, len(o.Order_items))
	for i, item := range o.Order_items {
		if item.Order_item_id == "" {
			item.Order_item_id = uuid.NewString()
		}
		item.Order_id = o.Order_id
		items[i] = item
	}
	o.Order_items = items
	o.Table_name = ""
	s.seq++
	s.orders[o.Order_id] = o
	s.orderSeq[o.Order_id] = s.seq
	if o.Submission_id != "" {
		s.submissions[o.Submission_id] = o.Order_id
	}
	return copyOrder(o), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return models.Order{}, models.OrderNotFound(id)
	}
	return copyOrder(o), nil
}

func (s *Store) GetOrderBySubmission(ctx context.Context, submissionID string) (models.Order, error) {
	s.mu.RLock()
	id, ok := s.submissions[submissionID]
	s.mu.RUnlock()
	if !ok {
		return models.Order{}, &models.NotFoundError{Entity: "submission", ID: submissionID}
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) ListOrdersForTable(_ context.Context, tableID int, exclude []models.OrderStatus) ([]models.Order, error) {
	return s.filterOrders(func(o models.Order) bool {
		return o.Table_id == tableID && !store.ContainsStatus(exclude, o.Status)
	}, false), nil
}

func (s *Store) ListOrdersByStatus(_ context.Context, statuses []models.OrderStatus) ([]models.Order, error) {
	return s.filterOrders(func(o models.Order) bool {
		return store.ContainsStatus(statuses, o.Status)
	}, false), nil
}

func (s *Store) ListOrdersCreatedBetween(_ context.Context, from, to time.Time) ([]models.Order, error) {
	return s.filterOrders(func(o models.Order) bool {
		return !o.Created_at.Before(from) && o.Created_at.Before(to)
	}, false), nil
}

func (s *Store) ListRecentOrders(_ context.Context, limit int) ([]models.Order, error) {
	orders := s.filterOrders(func(models.Order) bool { return true }, true)
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range orders {
		orders[i].Table_name = s.tables[orders[i].Table_id].Name
	}
	return orders, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, ids []string, status models.OrderStatus, from []models.OrderStatus) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := 0
	for _, id := range ids {
		o, ok := s.orders[id]
		if !ok || !store.ContainsStatus(from, o.Status) {
			continue
		}
		o.Status = status
		o.Updated_at = s.now()
		s.orders[id] = o
		moved++
	}
	return moved, nil
}

// filterOrders returns matching orders sorted by creation, oldest first
// unless newestFirst is set. Ties keep insertion order.
func (s *Store) filterOrders(keep func(models.Order) bool, newestFirst bool) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Created_at.Equal(b.Created_at) {
			if newestFirst {
				return a.Created_at.After(b.Created_at)
			}
			return a.Created_at.Before(b.Created_at)
		}
		if newestFirst {
			return s.orderSeq[a.Order_id] > s.orderSeq[b.Order_id]
		}
		return s.orderSeq[a.Order_id] < s.orderSeq[b.Order_id]
	})
	return out
}

func copyOrder(o models.Order) models.Order {
	o.Order_items = append([]models.OrderItem(nil), o.Order_items...)
	return o
}
