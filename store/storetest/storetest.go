// Package storetest is a conformance suite every store backend must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty backend. It is called once per subtest.
type Factory func(t *testing.T) store.Backend

func Run(t *testing.T, newBackend Factory) {
	t.Run("Tables", func(t *testing.T) { testTables(t, newBackend(t)) })
	t.Run("CompareAndSwap", func(t *testing.T) { testCompareAndSwap(t, newBackend(t)) })
	t.Run("InsertOrder", func(t *testing.T) { testInsertOrder(t, newBackend(t)) })
	t.Run("ListOrders", func(t *testing.T) { testListOrders(t, newBackend(t)) })
	t.Run("UpdateOrderStatus", func(t *testing.T) { testUpdateOrderStatus(t, newBackend(t)) })
	t.Run("Catalog", func(t *testing.T) { testCatalog(t, newBackend(t)) })
}

var base = time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createTables(t *testing.T, b store.Backend, ids ...int) {
	t.Helper()
	for _, id := range ids {
		_, err := b.Tables.CreateTable(context.Background(), models.Table{
			Table_id: id, Name: fmt.Sprintf("Table %02d", id), Status: models.TableAvailable,
		})
		require.NoError(t, err)
	}
}

func newOrder(table int, at time.Time, status models.OrderStatus, items ...models.OrderItem) models.Order {
	return models.Order{
		Submission_id: uuid.NewString(),
		Table_id:      table,
		Status:        status,
		Total_amount:  models.SumItems(items),
		Created_at:    at,
		Order_items:   items,
	}
}

func line(product, price string, qty int) models.OrderItem {
	return models.OrderItem{Product_id: product, Product_name: product, Quantity: qty, Unit_price: money(price)}
}

func orderIDs(orders []models.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.Order_id)
	}
	return ids
}

func testTables(t *testing.T, b store.Backend) {
	ctx := context.Background()
	createTables(t, b, 2, 1)

	tables, err := b.Tables.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, 1, tables[0].Table_id)
	assert.Equal(t, models.TableAvailable, tables[0].Status)
	assert.True(t, tables[0].Total_amount.IsZero())

	_, err = b.Tables.CreateTable(ctx, models.Table{Table_id: 1, Name: "dup", Status: models.TableAvailable})
	assert.True(t, models.IsValidation(err), "duplicate table: %v", err)

	_, err = b.Tables.GetTable(ctx, 404)
	assert.True(t, models.IsNotFound(err))

	table, err := b.Tables.AddToBalance(ctx, 1, money("12.50"))
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, table.Status)
	table, err = b.Tables.AddToBalance(ctx, 1, money("0.75"))
	require.NoError(t, err)
	assert.True(t, table.Total_amount.Equal(money("13.25")), "got %s", table.Total_amount)

	table, err = b.Tables.UpdateTable(ctx, 1, models.ResetTo(models.TableDirty))
	require.NoError(t, err)
	assert.Equal(t, models.TableDirty, table.Status)
	assert.True(t, table.Total_amount.IsZero())

	_, err = b.Tables.UpdateTable(ctx, 404, models.ResetTo(models.TableDirty))
	assert.True(t, models.IsNotFound(err))
	_, err = b.Tables.AddToBalance(ctx, 404, money("1"))
	assert.True(t, models.IsNotFound(err))
}

func testCompareAndSwap(t *testing.T, b store.Backend) {
	ctx := context.Background()
	createTables(t, b, 1)

	occupied := models.TableState{Status: models.TableOccupied, Total_amount: money("9.90")}
	available := models.TableState{Status: models.TableAvailable, Total_amount: decimal.Zero}

	swapped, err := b.Tables.CompareAndSwap(ctx, 1, occupied, available)
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = b.Tables.CompareAndSwap(ctx, 1, available, occupied)
	require.NoError(t, err)
	assert.True(t, swapped)

	table, err := b.Tables.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.True(t, table.State().Equal(occupied))

	swapped, err = b.Tables.CompareAndSwap(ctx, 1, available, occupied)
	require.NoError(t, err)
	assert.False(t, swapped, "stale prev must not swap")
}

func testInsertOrder(t *testing.T, b store.Backend) {
	ctx := context.Background()
	createTables(t, b, 1)

	order := newOrder(1, base, models.OrderQueued, line("burger", "12.50", 2), line("soda", "4.00", 1))
	saved, err := b.Orders.InsertOrder(ctx, order)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Order_id)
	assert.True(t, saved.Total_amount.Equal(money("29.00")))
	require.Len(t, saved.Order_items, 2)

	got, err := b.Orders.GetOrder(ctx, saved.Order_id)
	require.NoError(t, err)
	assert.Equal(t, order.Submission_id, got.Submission_id)
	assert.Equal(t, models.OrderQueued, got.Status)
	assert.True(t, got.Created_at.Equal(base))
	require.Len(t, got.Order_items, 2)
	assert.Equal(t, "burger", got.Order_items[0].Product_id)
	assert.Equal(t, 2, got.Order_items[0].Quantity)
	assert.True(t, got.Order_items[0].Unit_price.Equal(money("12.50")))
	assert.Equal(t, saved.Order_id, got.Order_items[1].Order_id)

	_, err = b.Orders.InsertOrder(ctx, order)
	assert.ErrorIs(t, err, models.ErrDuplicateSubmission)

	bySub, err := b.Orders.GetOrderBySubmission(ctx, order.Submission_id)
	require.NoError(t, err)
	assert.Equal(t, saved.Order_id, bySub.Order_id)

	_, err = b.Orders.GetOrderBySubmission(ctx, uuid.NewString())
	assert.True(t, models.IsNotFound(err))
	_, err = b.Orders.GetOrder(ctx, uuid.NewString())
	assert.True(t, models.IsNotFound(err))
}

func testListOrders(t *testing.T, b store.Backend) {
	ctx := context.Background()
	createTables(t, b, 1, 2)

	insert := func(table int, offset time.Duration, status models.OrderStatus) string {
		t.Helper()
		o, err := b.Orders.InsertOrder(ctx, newOrder(table, base.Add(offset), status, line("p", "5.00", 1)))
		require.NoError(t, err)
		return o.Order_id
	}
	second := insert(1, 2*time.Minute, models.OrderPreparing)
	first := insert(1, time.Minute, models.OrderQueued)
	other := insert(2, 3*time.Minute, models.OrderQueued)
	closed := insert(1, 4*time.Minute, models.OrderFinalized)
	voided := insert(2, 5*time.Minute, models.OrderCancelled)

	open, err := b.Orders.ListOrdersForTable(ctx, 1, models.ClosedStatuses)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, orderIDs(open))
	require.Len(t, open[0].Order_items, 1)

	all, err := b.Orders.ListOrdersForTable(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second, closed}, orderIDs(all))

	queued, err := b.Orders.ListOrdersByStatus(ctx, []models.OrderStatus{models.OrderQueued})
	require.NoError(t, err)
	assert.Equal(t, []string{first, other}, orderIDs(queued))

	window, err := b.Orders.ListOrdersCreatedBetween(ctx, base.Add(2*time.Minute), base.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{second, other, closed}, orderIDs(window))

	recent, err := b.Orders.ListRecentOrders(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{voided, closed}, orderIDs(recent))
	assert.Equal(t, "Table 02", recent[0].Table_name)
	assert.Equal(t, "Table 01", recent[1].Table_name)
}

func testUpdateOrderStatus(t *testing.T, b store.Backend) {
	ctx := context.Background()
	createTables(t, b, 1)

	queued, err := b.Orders.InsertOrder(ctx, newOrder(1, base, models.OrderQueued, line("p", "1.00", 1)))
	require.NoError(t, err)
	ready, err := b.Orders.InsertOrder(ctx, newOrder(1, base.Add(time.Second), models.OrderReady, line("p", "1.00", 1)))
	require.NoError(t, err)
	cancelled, err := b.Orders.InsertOrder(ctx, newOrder(1, base.Add(2*time.Second), models.OrderCancelled, line("p", "1.00", 1)))
	require.NoError(t, err)

	ids := []string{queued.Order_id, ready.Order_id, cancelled.Order_id}
	moved, err := b.Orders.UpdateOrderStatus(ctx, ids, models.OrderFinalized, models.OpenStatuses)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	moved, err = b.Orders.UpdateOrderStatus(ctx, ids, models.OrderFinalized, models.OpenStatuses)
	require.NoError(t, err)
	assert.Zero(t, moved)

	got, err := b.Orders.GetOrder(ctx, cancelled.Order_id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	got, err = b.Orders.GetOrder(ctx, queued.Order_id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFinalized, got.Status)

	moved, err = b.Orders.UpdateOrderStatus(ctx, nil, models.OrderFinalized, models.OpenStatuses)
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func testCatalog(t *testing.T, b store.Backend) {
	ctx := context.Background()

	drinks, err := b.Catalog.CreateCategory(ctx, models.Category{Name: "Drinks", Icon: "cup"})
	require.NoError(t, err)
	assert.NotEmpty(t, drinks.Category_id)
	_, err = b.Catalog.CreateCategory(ctx, models.Category{Name: "Burgers"})
	require.NoError(t, err)

	categories, err := b.Catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Burgers", categories[0].Name)

	soda, err := b.Catalog.CreateProduct(ctx, models.Product{
		Name: "Soda", Price: money("4.50"), Category_id: drinks.Category_id, Status: models.ProductActive,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, soda.Product_id)
	_, err = b.Catalog.CreateProduct(ctx, models.Product{Name: "Apple Juice", Price: money("6"), Status: models.ProductPaused})
	require.NoError(t, err)

	got, err := b.Catalog.GetProduct(ctx, soda.Product_id)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(money("4.50")))
	assert.Equal(t, drinks.Category_id, got.Category_id)

	all, err := b.Catalog.ListProducts(ctx, models.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Apple Juice", all[0].Name)

	active, err := b.Catalog.ListActiveProducts(ctx, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, soda.Product_id, active[0].Product_id)

	byCategory, err := b.Catalog.ListActiveProducts(ctx, drinks.Category_id)
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	got.Price = money("5.00")
	got.Status = models.ProductPaused
	updated, err := b.Catalog.UpdateProduct(ctx, got)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(money("5.00")))
	assert.Equal(t, models.ProductPaused, updated.Status)

	_, err = b.Catalog.GetProduct(ctx, uuid.NewString())
	assert.True(t, models.IsNotFound(err))
	_, err = b.Catalog.UpdateProduct(ctx, models.Product{Product_id: uuid.NewString(), Name: "ghost", Status: models.ProductActive})
	assert.True(t, models.IsNotFound(err))
}
