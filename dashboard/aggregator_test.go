package dashboard

import (
	"context"
	"testing"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrders(t *testing.T, loc *time.Location) (*memory.Store, time.Time) {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	for id, status := range map[int]models.TableStatus{1: models.TableOccupied, 2: models.TableAvailable, 3: models.TableOccupied, 4: models.TableDirty} {
		_, err := mem.CreateTable(ctx, models.Table{Table_id: id, Name: "T", Status: status})
		require.NoError(t, err)
	}

	now := time.Date(2026, 7, 15, 21, 30, 0, 0, loc)
	add := func(at time.Time, total string, status models.OrderStatus) {
		_, err := mem.InsertOrder(ctx, models.Order{
			Table_id:     1,
			Status:       status,
			Total_amount: decimal.RequireFromString(total),
			Created_at:   at,
		})
		require.NoError(t, err)
	}
	add(now.Add(-time.Hour), "30.00", models.OrderFinalized)
	add(now.Add(-2*time.Hour), "20.00", models.OrderQueued)
	add(now.Add(-3*time.Hour), "15.00", models.OrderCancelled)
	add(now.Add(-22*time.Hour), "50.00", models.OrderFinalized) // yesterday
	add(now.Add(-48*time.Hour), "10.00", models.OrderFinalized)
	return mem, now
}

func TestSummary(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	mem, now := seedOrders(t, loc)
	agg := NewAggregator(mem, mem, loc, func() time.Time { return now })

	s, err := agg.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.Orders_today)
	assert.Equal(t, 2, s.Occupied_tables)
	assert.Equal(t, 4, s.Total_tables)
	assert.True(t, s.Revenue_today.Equal(decimal.RequireFromString("50.00")), "got %s", s.Revenue_today)
	assert.True(t, s.Average_ticket.Equal(decimal.RequireFromString("25.00")))
	assert.Equal(t, now, s.Generated_at)
}

func TestSummaryUsesLocalMidnight(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	loc := time.FixedZone("BRT", -3*60*60)
	// 01:00 UTC on the 16th is still the 15th in BRT
	_, err := mem.InsertOrder(ctx, models.Order{Table_id: 1, Status: models.OrderReady, Total_amount: decimal.NewFromInt(9),
		Created_at: time.Date(2026, 7, 16, 1, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	agg := NewAggregator(mem, mem, loc, func() time.Time { return time.Date(2026, 7, 15, 23, 0, 0, 0, loc) })
	s, err := agg.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Orders_today)
	assert.Equal(t, 0, s.Total_tables)
}

func TestSummaryEmpty(t *testing.T) {
	mem := memory.New()
	agg := NewAggregator(mem, mem, time.UTC, nil)
	s, err := agg.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Orders_today)
	assert.True(t, s.Average_ticket.IsZero())
}

func TestRevenueByDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	mem, now := seedOrders(t, loc)
	agg := NewAggregator(mem, mem, loc, func() time.Time { return now })

	from := time.Date(2026, 7, 13, 0, 0, 0, 0, loc)
	days, err := agg.Revenue(context.Background(), from, now)
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, "2026-07-13", days[0].Date)
	assert.Equal(t, 1, days[0].Orders)
	assert.True(t, days[0].Revenue.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 1, days[1].Orders)
	assert.True(t, days[1].Revenue.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 2, days[2].Orders)
	assert.True(t, days[2].Revenue.Equal(decimal.NewFromInt(50)))

	_, err = agg.Revenue(context.Background(), now, from)
	assert.True(t, models.IsValidation(err))
}

func TestRevenueRangeIsBounded(t *testing.T) {
	agg := NewAggregator(memory.New(), memory.New(), time.UTC, time.Now)
	ctx := context.Background()
	start := time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC)

	days, err := agg.Revenue(ctx, start, time.Date(2028, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, days, MaxRevenueDays)

	_, err = agg.Revenue(ctx, start, time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, models.IsValidation(err))

	_, err = agg.Revenue(ctx, time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.True(t, models.IsValidation(err))
}

func TestRecentOrdersDefaultsLimit(t *testing.T) {
	mem, now := seedOrders(t, time.UTC)
	agg := NewAggregator(mem, mem, time.UTC, func() time.Time { return now })

	orders, err := agg.RecentOrders(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, orders, 5)
	assert.True(t, orders[0].Created_at.After(orders[1].Created_at))

	orders, err = agg.RecentOrders(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
