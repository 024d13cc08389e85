// Package billing owns the table state machine and the table balance. It is
// the only code that writes both orders and tables.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/notify"
	"go-restaurant-pos/store"

	"github.com/google/uuid"
)

type Notifier interface {
	Publish(topic string)
}

// Submission is one cart sent for a table. ID is the idempotency key.
type Submission struct {
	ID      string
	TableID int
	Items   []models.OrderItem
}

type Engine struct {
	tables   store.TableRegistry
	orders   store.OrderLedger
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time

	locks tableLocks

	mu      sync.Mutex
	pending map[int]time.Time
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(tables store.TableRegistry, orders store.OrderLedger, opts ...Option) *Engine {
	e := &Engine{
		tables:  tables,
		orders:  orders,
		log:     slog.Default(),
		now:     time.Now,
		locks:   tableLocks{m: map[int]*sync.Mutex{}},
		pending: map[int]time.Time{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecordOrder writes the order with its items, then adds its total to the
// table balance and marks the table occupied. Replaying a submission id
// returns the order already recorded for it.
func (e *Engine) RecordOrder(ctx context.Context, sub Submission) (models.Order, error) {
	if sub.TableID <= 0 {
		return models.Order{}, models.NewValidationError("table_id", "table is required")
	}
	if err := validateItems(sub.Items); err != nil {
		return models.Order{}, err
	}

	unlock := e.locks.lock(sub.TableID)
	defer unlock()

	table, err := e.tables.GetTable(ctx, sub.TableID)
	if err != nil {
		return models.Order{}, fmt.Errorf("record order: %w", err)
	}

	order := models.Order{
		Submission_id: sub.ID,
		Table_id:      table.Table_id,
		Status:        models.OrderQueued,
		Total_amount:  models.SumItems(sub.Items),
		Created_at:    e.now(),
		Order_items:   append([]models.OrderItem(nil), sub.Items...),
	}
	if order.Submission_id == "" {
		order.Submission_id = uuid.NewString()
	}

	saved, err := e.orders.InsertOrder(ctx, order)
	if errors.Is(err, models.ErrDuplicateSubmission) {
		return e.replaySubmission(ctx, order)
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("record order: %w", err)
	}

	if _, err := e.tables.AddToBalance(ctx, table.Table_id, saved.Total_amount); err != nil {
		e.flag(table.Table_id)
		e.log.ErrorContext(ctx, "partial_commit",
			"op", "record_order", "table_id", table.Table_id, "order_id", saved.Order_id, "error", err)
		e.publish(notify.TopicOrders)
		return saved, &models.PartialCommitError{
			Op: "record_order", Table_id: table.Table_id, Order_ids: []string{saved.Order_id},
			Submission_id: saved.Submission_id, Err: err,
		}
	}

	e.log.InfoContext(ctx, "order_recorded",
		"table_id", table.Table_id, "order_id", saved.Order_id, "total", saved.Total_amount.StringFixed(2))
	e.publish(notify.TopicOrders, notify.TopicTables)
	return saved, nil
}

// replaySubmission returns the order already stored for a resent submission.
// A resend carrying other products or quantities is rejected rather than
// answered with the stale order.
func (e *Engine) replaySubmission(ctx context.Context, resent models.Order) (models.Order, error) {
	submissionID := resent.Submission_id
	existing, err := e.orders.GetOrderBySubmission(ctx, submissionID)
	if err != nil {
		return models.Order{}, fmt.Errorf("replay submission %s: %w", submissionID, err)
	}
	if !sameLines(existing.Order_items, resent.Order_items) {
		return existing, models.NewValidationError("submission_id",
			"submission %s was already recorded as order %s with different items", submissionID, existing.Order_id)
	}
	// The first attempt may have stopped before the balance update.
	if _, err := e.reconcileLocked(ctx, existing.Table_id); err != nil {
		e.flag(existing.Table_id)
		e.log.WarnContext(ctx, "reconcile_failed", "table_id", existing.Table_id, "error", err)
	}
	e.log.InfoContext(ctx, "submission_replayed", "submission_id", submissionID, "order_id", existing.Order_id)
	return existing, nil
}

// CloseBill finalizes every open order of the table and resets it to dirty
// with a zero balance.
func (e *Engine) CloseBill(ctx context.Context, tableID int) (Bill, error) {
	unlock := e.locks.lock(tableID)
	defer unlock()

	table, err := e.tables.GetTable(ctx, tableID)
	if err != nil {
		return Bill{}, fmt.Errorf("close bill: %w", err)
	}
	open, err := e.orders.ListOrdersForTable(ctx, tableID, models.ClosedStatuses)
	if err != nil {
		return Bill{}, fmt.Errorf("close bill: list orders: %w", err)
	}
	if len(open) == 0 {
		return Bill{}, models.ErrNoActiveOrder
	}

	bill := buildBill(table, open)
	ids := bill.OrderIDs()
	moved, err := e.orders.UpdateOrderStatus(ctx, ids, models.OrderFinalized, models.OpenStatuses)
	if err != nil {
		e.flag(tableID)
		return Bill{}, fmt.Errorf("close bill: finalize orders: %w", err)
	}
	if moved == 0 {
		return Bill{}, models.ErrNoActiveOrder
	}
	if moved < len(ids) {
		e.log.WarnContext(ctx, "bill_close_race", "table_id", tableID, "expected", len(ids), "finalized", moved)
		if err := e.refreshStatuses(ctx, &bill); err != nil {
			e.log.WarnContext(ctx, "bill_status_refresh_failed", "table_id", tableID, "error", err)
		}
	} else {
		for i := range bill.Orders {
			bill.Orders[i].Status = models.OrderFinalized
		}
	}
	closedAt := e.now()
	bill.Closed_at = &closedAt

	if _, err := e.tables.UpdateTable(ctx, tableID, models.ResetTo(models.TableDirty)); err != nil {
		e.flag(tableID)
		e.log.ErrorContext(ctx, "partial_commit", "op", "close_bill", "table_id", tableID, "error", err)
		e.publish(notify.TopicOrders)
		return bill, &models.PartialCommitError{Op: "close_bill", Table_id: tableID, Order_ids: ids, Err: err}
	}

	// Another instance may have recorded an order between the listing and the reset.
	late, err := e.orders.ListOrdersForTable(ctx, tableID, models.ClosedStatuses)
	if err != nil || len(late) > 0 {
		if _, rerr := e.reconcileLocked(ctx, tableID); rerr != nil {
			e.flag(tableID)
		}
	}

	e.log.InfoContext(ctx, "bill_closed",
		"table_id", tableID, "orders", len(ids), "total", bill.Total.StringFixed(2))
	e.publish(notify.TopicOrders, notify.TopicTables)
	return bill, nil
}

// refreshStatuses rereads the orders of a bill whose closure raced with
// another writer, so the bill shows which of them were finalized.
func (e *Engine) refreshStatuses(ctx context.Context, bill *Bill) error {
	for i, o := range bill.Orders {
		current, err := e.orders.GetOrder(ctx, o.Order_id)
		if err != nil {
			return err
		}
		bill.Orders[i].Status = current.Status
	}
	return nil
}

// PreviewBill is the running bill of a table. Nothing is written.
func (e *Engine) PreviewBill(ctx context.Context, tableID int) (Bill, error) {
	table, err := e.tables.GetTable(ctx, tableID)
	if err != nil {
		return Bill{}, fmt.Errorf("preview bill: %w", err)
	}
	open, err := e.orders.ListOrdersForTable(ctx, tableID, models.ClosedStatuses)
	if err != nil {
		return Bill{}, fmt.Errorf("preview bill: list orders: %w", err)
	}
	return buildBill(table, open), nil
}

// ReleaseTable moves a dirty table back to available. Any other state is
// left alone and reported as not released.
func (e *Engine) ReleaseTable(ctx context.Context, tableID int) (bool, error) {
	unlock := e.locks.lock(tableID)
	defer unlock()

	if _, err := e.tables.GetTable(ctx, tableID); err != nil {
		return false, fmt.Errorf("release table: %w", err)
	}
	dirty := models.TableState{Status: models.TableDirty}
	available := models.TableState{Status: models.TableAvailable}
	released, err := e.tables.CompareAndSwap(ctx, tableID, dirty, available)
	if err != nil {
		return false, fmt.Errorf("release table: %w", err)
	}
	if released {
		e.log.InfoContext(ctx, "table_released", "table_id", tableID)
		e.publish(notify.TopicTables)
	}
	return released, nil
}

// ReleaseAll releases every dirty table and returns the ids it released, in
// table order. Tables in any other state are skipped.
func (e *Engine) ReleaseAll(ctx context.Context) ([]int, error) {
	tables, err := e.tables.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("release all: %w", err)
	}
	released := []int{}
	var errs []error
	for _, t := range tables {
		if t.Status != models.TableDirty {
			continue
		}
		ok, err := e.ReleaseTable(ctx, t.Table_id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			released = append(released, t.Table_id)
		}
	}
	return released, errors.Join(errs...)
}

// CancelOrder voids an open order and repairs its table balance.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (models.Order, bool, error) {
	order, err := e.orders.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, false, fmt.Errorf("cancel order: %w", err)
	}

	unlock := e.locks.lock(order.Table_id)
	defer unlock()

	moved, err := e.orders.UpdateOrderStatus(ctx, []string{orderID}, models.OrderCancelled, models.OpenStatuses)
	if err != nil {
		return order, false, fmt.Errorf("cancel order: %w", err)
	}
	if moved == 0 {
		return order, false, nil
	}
	order.Status = models.OrderCancelled
	if _, err := e.reconcileLocked(ctx, order.Table_id); err != nil {
		e.flag(order.Table_id)
		e.log.ErrorContext(ctx, "partial_commit", "op", "cancel_order", "table_id", order.Table_id, "error", err)
		return order, true, &models.PartialCommitError{
			Op: "cancel_order", Table_id: order.Table_id, Order_ids: []string{orderID}, Err: err,
		}
	}
	e.log.InfoContext(ctx, "order_cancelled", "table_id", order.Table_id, "order_id", orderID)
	e.publish(notify.TopicOrders, notify.TopicTables)
	return order, true, nil
}

// Pending lists the tables waiting for reconciliation, lowest id first.
func (e *Engine) Pending() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]int, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (e *Engine) flag(tableID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[tableID]; !ok {
		e.pending[tableID] = e.now()
	}
}

func (e *Engine) unflag(tableID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, tableID)
}

func (e *Engine) publish(topics ...string) {
	if e.notifier == nil {
		return
	}
	for _, topic := range topics {
		e.notifier.Publish(topic)
	}
}

func validateItems(items []models.OrderItem) error {
	if len(items) == 0 {
		return models.NewValidationError("items", "order has no items")
	}
	for i, item := range items {
		if item.Product_id == "" {
			return models.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "product is required")
		}
		if item.Quantity <= 0 {
			return models.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		if item.Unit_price.IsNegative() {
			return models.NewValidationError(fmt.Sprintf("items[%d].unit_price", i), "price must not be negative")
		}
	}
	return nil
}

// sameLines compares two item lists by product and quantity. Prices are left
// out because they are captured again on every attempt.
func sameLines(a, b []models.OrderItem) bool {
	count := func(items []models.OrderItem) map[string]int {
		m := map[string]int{}
		for _, item := range items {
			m[item.Product_id] += item.Quantity
		}
		return m
	}
	ca, cb := count(a), count(b)
	if len(ca) != len(cb) {
		return false
	}
	for id, qty := range ca {
		if cb[id] != qty {
			return false
		}
	}
	return true
}

// tableLocks serialises the engine's writes per table within this process.
type tableLocks struct {
	mu sync.Mutex
	m  map[int]*sync.Mutex
}

func (l *tableLocks) lock(id int) func() {
	l.mu.Lock()
	m, ok := l.m[id]
	if !ok {
		m = &sync.Mutex{}
		l.m[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
