// Package kitchen projects the ledger into the kitchen display queue.
package kitchen

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/notify"
	"go-restaurant-pos/store"
)

const DefaultLateAfter = 15 * time.Minute

type Urgency string

const (
	OnTime Urgency = "on_time"
	Late   Urgency = "late"
)

// Classify is a display label only; crossing the threshold changes no state.
func Classify(now, createdAt time.Time, lateAfter time.Duration) Urgency {
	if now.Sub(createdAt) >= lateAfter {
		return Late
	}
	return OnTime
}

type Ticket struct {
	Order_id        string             `json:"order_id"`
	Table_id        int                `json:"table_id"`
	Table_name      string             `json:"table_name"`
	Status          models.OrderStatus `json:"status"`
	Items           []models.OrderItem `json:"items"`
	Created_at      time.Time          `json:"created_at"`
	Elapsed_seconds int64              `json:"elapsed_seconds"`
	Urgency         Urgency            `json:"urgency"`
}

type Queue struct {
	orders    store.OrderLedger
	tables    store.TableRegistry
	notifier  interface{ Publish(topic string) }
	log       *slog.Logger
	lateAfter time.Duration
	now       func() time.Time
}

type Option func(*Queue)

func WithLateAfter(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.lateAfter = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.log = l }
}

func WithNotifier(n interface{ Publish(topic string) }) Option {
	return func(q *Queue) { q.notifier = n }
}

func NewQueue(orders store.OrderLedger, tables store.TableRegistry, opts ...Option) *Queue {
	q := &Queue{
		orders:    orders,
		tables:    tables,
		log:       slog.Default(),
		lateAfter: DefaultLateAfter,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

var activeStatuses = []models.OrderStatus{models.OrderQueued, models.OrderPreparing}

// Active returns queued and preparing orders, oldest first.
func (q *Queue) Active(ctx context.Context) ([]Ticket, error) {
	orders, err := q.orders.ListOrdersByStatus(ctx, activeStatuses)
	if err != nil {
		return nil, fmt.Errorf("kitchen queue: %w", err)
	}
	tables, err := q.tables.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("kitchen queue: %w", err)
	}
	names := make(map[int]string, len(tables))
	for _, t := range tables {
		names[t.Table_id] = t.Name
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Created_at.Before(orders[j].Created_at)
	})

	now := q.now()
	tickets := make([]Ticket, 0, len(orders))
	for _, o := range orders {
		tickets = append(tickets, Ticket{
			Order_id:        o.Order_id,
			Table_id:        o.Table_id,
			Table_name:      names[o.Table_id],
			Status:          o.Status,
			Items:           o.Order_items,
			Created_at:      o.Created_at,
			Elapsed_seconds: int64(now.Sub(o.Created_at) / time.Second),
			Urgency:         Classify(now, o.Created_at, q.lateAfter),
		})
	}
	return tickets, nil
}

func nextStatus(s models.OrderStatus) (models.OrderStatus, bool) {
	switch s {
	case models.OrderQueued:
		return models.OrderPreparing, true
	case models.OrderPreparing:
		return models.OrderReady, true
	}
	return s, false
}

// Advance moves an order one step along queued -> preparing -> ready.
// Orders in any other status are returned unchanged with advanced false.
func (q *Queue) Advance(ctx context.Context, orderID string) (models.Order, bool, error) {
	order, err := q.orders.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, false, fmt.Errorf("advance order: %w", err)
	}
	next, ok := nextStatus(order.Status)
	if !ok {
		return order, false, nil
	}
	moved, err := q.orders.UpdateOrderStatus(ctx, []string{orderID}, next, []models.OrderStatus{order.Status})
	if err != nil {
		return order, false, fmt.Errorf("advance order: %w", err)
	}
	if moved == 0 {
		// someone else moved it first
		current, err := q.orders.GetOrder(ctx, orderID)
		if err != nil {
			return order, false, fmt.Errorf("advance order: %w", err)
		}
		return current, false, nil
	}
	q.log.InfoContext(ctx, "order_advanced", "order_id", orderID, "from", order.Status, "to", next)
	if q.notifier != nil {
		q.notifier.Publish(notify.TopicOrders)
	}
	order.Status = next
	return order, true, nil
}
