// Package dashboard computes the back-office rollups. Nothing is cached.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/store"

	"github.com/shopspring/decimal"
)

type Summary struct {
	Orders_today    int             `json:"orders_today"`
	Occupied_tables int             `json:"occupied_tables"`
	Total_tables    int             `json:"total_tables"`
	Revenue_today   decimal.Decimal `json:"revenue_today"`
	Average_ticket  decimal.Decimal `json:"average_ticket"`
	Generated_at    time.Time       `json:"generated_at"`
}

type DailyRevenue struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Aggregator struct {
	tables store.TableRegistry
	orders store.OrderLedger
	loc    *time.Location
	now    func() time.Time
}

func NewAggregator(tables store.TableRegistry, orders store.OrderLedger, loc *time.Location, now func() time.Time) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{tables: tables, orders: orders, loc: loc, now: now}
}

func (a *Aggregator) midnight(t time.Time) time.Time {
	t = t.In(a.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, a.loc)
}

func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	now := a.now()
	start := a.midnight(now)
	orders, err := a.orders.ListOrdersCreatedBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard summary: %w", err)
	}
	tables, err := a.tables.ListTables(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("dashboard summary: %w", err)
	}

	s := Summary{
		Orders_today:   len(orders),
		Total_tables:   len(tables),
		Revenue_today:  decimal.Zero,
		Average_ticket: decimal.Zero,
		Generated_at:   now,
	}
	for _, t := range tables {
		if t.Status == models.TableOccupied {
			s.Occupied_tables++
		}
	}
	billable := 0
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		billable++
		s.Revenue_today = s.Revenue_today.Add(o.Total_amount)
	}
	if billable > 0 {
		s.Average_ticket = s.Revenue_today.Div(decimal.NewFromInt(int64(billable))).Round(2)
	}
	return s, nil
}

func (a *Aggregator) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	orders, err := a.orders.ListRecentOrders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return orders, nil
}

// MaxRevenueDays bounds the span of one Revenue query.
const MaxRevenueDays = 366

// Revenue breaks down non-cancelled revenue per local day, from and to inclusive.
func (a *Aggregator) Revenue(ctx context.Context, from, to time.Time) ([]DailyRevenue, error) {
	start, end := a.midnight(from), a.midnight(to).AddDate(0, 0, 1)
	if !start.Before(end) {
		return nil, models.NewValidationError("endDate", "end date is before start date")
	}
	if start.AddDate(0, 0, MaxRevenueDays).Before(end) {
		return nil, models.NewValidationError("endDate", "range spans more than %d days", MaxRevenueDays)
	}
	orders, err := a.orders.ListOrdersCreatedBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}

	days := []DailyRevenue{}
	index := map[string]int{}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		index[key] = len(days)
		days = append(days, DailyRevenue{Date: key, Revenue: decimal.Zero})
	}
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		i, ok := index[o.Created_at.In(a.loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		days[i].Orders++
		days[i].Revenue = days[i].Revenue.Add(o.Total_amount)
	}
	return days, nil
}
