package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-restaurant-pos/logging"
	"go-restaurant-pos/models"
	"go-restaurant-pos/notify"
	"go-restaurant-pos/store"
	"go-restaurant-pos/store/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTableDown = errors.New("table registry unavailable")

// flakyTables fails selected registry writes on demand.
type flakyTables struct {
	store.TableRegistry
	failAdd    atomic.Bool
	failUpdate atomic.Bool
}

func (f *flakyTables) AddToBalance(ctx context.Context, id int, delta decimal.Decimal) (models.Table, error) {
	if f.failAdd.Load() {
		return models.Table{}, errTableDown
	}
	return f.TableRegistry.AddToBalance(ctx, id, delta)
}

func (f *flakyTables) UpdateTable(ctx context.Context, id int, patch models.TablePatch) (models.Table, error) {
	if f.failUpdate.Load() {
		return models.Table{}, errTableDown
	}
	return f.TableRegistry.UpdateTable(ctx, id, patch)
}

type topicRecorder struct {
	mu     sync.Mutex
	topics []string
}

func (r *topicRecorder) Publish(topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
}

func (r *topicRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

type fixture struct {
	mem    *memory.Store
	tables *flakyTables
	events *topicRecorder
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	ctx := context.Background()
	for id := 1; id <= 3; id++ {
		_, err := mem.CreateTable(ctx, models.Table{Table_id: id, Name: fmt.Sprintf("Table %02d", id)})
		require.NoError(t, err)
	}
	tables := &flakyTables{TableRegistry: mem}
	events := &topicRecorder{}
	engine := NewEngine(tables, mem, WithNotifier(events), WithLogger(logging.Discard()))
	return &fixture{mem: mem, tables: tables, events: events, engine: engine}
}

func item(product, price string, qty int) models.OrderItem {
	return models.OrderItem{
		Product_id:   product,
		Product_name: product,
		Quantity:     qty,
		Unit_price:   decimal.RequireFromString(price),
	}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) table(t *testing.T, id int) models.Table {
	t.Helper()
	table, err := f.mem.GetTable(context.Background(), id)
	require.NoError(t, err)
	return table
}

func TestRecordOrderUpdatesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.engine.RecordOrder(ctx, Submission{ID: "s1", TableID: 1, Items: []models.OrderItem{item("burger", "12.50", 2)}})
	require.NoError(t, err)
	assert.Equal(t, models.OrderQueued, order.Status)
	assert.True(t, order.Total_amount.Equal(money("25.00")))
	require.Len(t, order.Order_items, 1)

	table := f.table(t, 1)
	assert.Equal(t, models.TableOccupied, table.Status)
	assert.True(t, table.Total_amount.Equal(money("25.00")))

	stored, err := f.mem.GetOrder(ctx, order.Order_id)
	require.NoError(t, err)
	assert.Equal(t, "s1", stored.Submission_id)
	assert.Contains(t, f.events.seen(), notify.TopicTables)
	assert.Contains(t, f.events.seen(), notify.TopicOrders)
}

func TestRecordOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.RecordOrder(ctx, Submission{TableID: 0, Items: []models.OrderItem{item("x", "1", 1)}})
	assert.True(t, models.IsValidation(err))

	_, err = f.engine.RecordOrder(ctx, Submission{TableID: 1})
	assert.True(t, models.IsValidation(err))

	_, err = f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("x", "1", 0)}})
	assert.True(t, models.IsValidation(err))

	_, err = f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("x", "-1", 1)}})
	assert.True(t, models.IsValidation(err))

	_, err = f.engine.RecordOrder(ctx, Submission{TableID: 42, Items: []models.OrderItem{item("x", "1", 1)}})
	assert.True(t, models.IsNotFound(err))

	orders, err := f.mem.ListOrdersForTable(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, models.TableAvailable, f.table(t, 1).Status)
}

func TestCloseBillFinalizesAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("burger", "12.50", 2)}})
	require.NoError(t, err)
	second, err := f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{
		item("burger", "12.50", 1),
	}})
	require.NoError(t, err)

	bill, err := f.engine.CloseBill(ctx, 1)
	require.NoError(t, err)
	assert.True(t, bill.Total.Equal(money("37.50")))
	assert.Equal(t, []string{first.Order_id, second.Order_id}, bill.OrderIDs())
	require.Len(t, bill.Items, 1)
	assert.Equal(t, 3, bill.Items[0].Quantity)
	assert.True(t, bill.Items[0].Subtotal.Equal(money("37.50")))
	require.NotNil(t, bill.Closed_at)

	table := f.table(t, 1)
	assert.Equal(t, models.TableDirty, table.Status)
	assert.True(t, table.Total_amount.IsZero())

	for _, id := range bill.OrderIDs() {
		o, err := f.mem.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.OrderFinalized, o.Status)
	}

	_, err = f.engine.CloseBill(ctx, 1)
	assert.ErrorIs(t, err, models.ErrNoActiveOrder)
}

func TestCloseBillKeepsPriceChangesApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.RecordOrder(ctx, Submission{TableID: 2, Items: []models.OrderItem{item("soda", "4.00", 1), item("fries", "9.00", 1)}})
	require.NoError(t, err)
	_, err = f.engine.RecordOrder(ctx, Submission{TableID: 2, Items: []models.OrderItem{item("soda", "4.50", 2)}})
	require.NoError(t, err)

	bill, err := f.engine.PreviewBill(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, bill.Closed_at)
	require.Len(t, bill.Items, 3)
	assert.Equal(t, "soda", bill.Items[0].Product_id)
	assert.Equal(t, "fries", bill.Items[1].Product_id)
	assert.True(t, bill.Items[2].Unit_price.Equal(money("4.50")))
	assert.True(t, bill.Total.Equal(money("22.00")))

	// preview writes nothing
	assert.Equal(t, models.TableOccupied, f.table(t, 2).Status)
}

func TestCloseBillWithoutOrders(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CloseBill(context.Background(), 3)
	assert.ErrorIs(t, err, models.ErrNoActiveOrder)

	_, err = f.engine.CloseBill(context.Background(), 77)
	assert.True(t, models.IsNotFound(err))
}

func TestReleaseTableOnlyFromDirty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	released, err := f.engine.ReleaseTable(ctx, 1)
	require.NoError(t, err)
	assert.False(t, released)

	_, err = f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("burger", "10", 1)}})
	require.NoError(t, err)
	released, err = f.engine.ReleaseTable(ctx, 1)
	require.NoError(t, err)
	assert.False(t, released, "occupied table must not be released")
	assert.Equal(t, models.TableOccupied, f.table(t, 1).Status)

	_, err = f.engine.CloseBill(ctx, 1)
	require.NoError(t, err)
	released, err = f.engine.ReleaseTable(ctx, 1)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, models.TableAvailable, f.table(t, 1).Status)

	_, err = f.engine.ReleaseTable(ctx, 99)
	assert.True(t, models.IsNotFound(err))
}

func TestConcurrentOrdersAccumulate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("soda", "10.00", 1)}})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	table := f.table(t, 1)
	assert.True(t, table.Total_amount.Equal(money("200.00")), "got %s", table.Total_amount)
	orders, err := f.mem.ListOrdersForTable(ctx, 1, models.ClosedStatuses)
	require.NoError(t, err)
	assert.Len(t, orders, n)
}

func TestOrdersNeverVisibleWithoutItems(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var bad atomic.Int32
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			orders, err := f.mem.ListOrdersForTable(ctx, 1, nil)
			if err != nil {
				continue
			}
			for _, o := range orders {
				if len(o.Order_items) == 0 || !o.Total_amount.Equal(models.SumItems(o.Order_items)) {
					bad.Add(1)
				}
			}
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := f.engine.RecordOrder(context.Background(), Submission{TableID: 1, Items: []models.OrderItem{
			item("burger", "12.50", 1), item("soda", "4.00", 2),
		}})
		require.NoError(t, err)
	}
	cancel()
	wg.Wait()
	assert.Zero(t, bad.Load())
}

func TestPartialCommitIsFlaggedAndReconciled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tables.failAdd.Store(true)
	order, err := f.engine.RecordOrder(ctx, Submission{ID: "s-partial", TableID: 2, Items: []models.OrderItem{item("burger", "12.50", 2)}})
	require.Error(t, err)
	var pc *models.PartialCommitError
	require.ErrorAs(t, err, &pc)
	assert.Equal(t, "record_order", pc.Op)
	assert.Equal(t, 2, pc.Table_id)
	assert.Equal(t, []string{order.Order_id}, pc.Order_ids)
	assert.ErrorIs(t, err, errTableDown)

	assert.Equal(t, []int{2}, f.engine.Pending())
	assert.Equal(t, models.TableAvailable, f.table(t, 2).Status)

	f.tables.failAdd.Store(false)
	require.NoError(t, f.engine.ReconcilePending(ctx))
	assert.Empty(t, f.engine.Pending())

	table := f.table(t, 2)
	assert.Equal(t, models.TableOccupied, table.Status)
	assert.True(t, table.Total_amount.Equal(money("25.00")))

	// reconcile is idempotent
	again, err := f.engine.Reconcile(ctx, 2)
	require.NoError(t, err)
	assert.True(t, again.Total_amount.Equal(money("25.00")))
}

func TestRetryAfterPartialCommitDoesNotDoubleCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := Submission{ID: "retry-me", TableID: 1, Items: []models.OrderItem{item("burger", "12.50", 2)}}

	f.tables.failAdd.Store(true)
	first, err := f.engine.RecordOrder(ctx, sub)
	require.True(t, models.IsPartialCommit(err))

	f.tables.failAdd.Store(false)
	second, err := f.engine.RecordOrder(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, first.Order_id, second.Order_id)

	table := f.table(t, 1)
	assert.True(t, table.Total_amount.Equal(money("25.00")), "got %s", table.Total_amount)
	assert.Empty(t, f.engine.Pending())

	third, err := f.engine.RecordOrder(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, first.Order_id, third.Order_id)
	assert.True(t, f.table(t, 1).Total_amount.Equal(money("25.00")))

	orders, err := f.mem.ListOrdersForTable(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCloseBillPartialCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.RecordOrder(ctx, Submission{TableID: 3, Items: []models.OrderItem{item("fries", "9.00", 1)}})
	require.NoError(t, err)

	f.tables.failUpdate.Store(true)
	bill, err := f.engine.CloseBill(ctx, 3)
	require.True(t, models.IsPartialCommit(err))
	assert.Len(t, bill.Orders, 1)
	assert.Equal(t, []int{3}, f.engine.Pending())
	assert.Equal(t, models.TableOccupied, f.table(t, 3).Status)

	f.tables.failUpdate.Store(false)
	table, err := f.engine.Reconcile(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.TableDirty, table.Status)
	assert.True(t, table.Total_amount.IsZero())
	assert.Empty(t, f.engine.Pending())
}

func TestCancelOrderRepairsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep, err := f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("burger", "12.50", 1)}})
	require.NoError(t, err)
	drop, err := f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("soda", "4.00", 1)}})
	require.NoError(t, err)

	cancelled, ok, err := f.engine.CancelOrder(ctx, drop.Order_id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.True(t, f.table(t, 1).Total_amount.Equal(money("12.50")))

	_, ok, err = f.engine.CancelOrder(ctx, drop.Order_id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.engine.CancelOrder(ctx, keep.Order_id)
	require.NoError(t, err)
	assert.True(t, ok)
	table := f.table(t, 1)
	assert.Equal(t, models.TableDirty, table.Status)
	assert.True(t, table.Total_amount.IsZero())

	_, _, err = f.engine.CancelOrder(ctx, "missing")
	assert.True(t, models.IsNotFound(err))
}

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("burger", "12.50", 1)}})
	require.NoError(t, err)
	drift := money("99.00")
	_, err = f.mem.UpdateTable(ctx, 1, models.TablePatch{Total_amount: &drift})
	require.NoError(t, err)

	dirty := models.TableDirty
	_, err = f.mem.UpdateTable(ctx, 2, models.TablePatch{Status: &dirty, Total_amount: &drift})
	require.NoError(t, err)

	require.NoError(t, f.engine.ReconcileAll(ctx))
	assert.True(t, f.table(t, 1).Total_amount.Equal(money("12.50")))
	second := f.table(t, 2)
	assert.Equal(t, models.TableDirty, second.Status)
	assert.True(t, second.Total_amount.IsZero())
}

func TestExpectedState(t *testing.T) {
	open := []models.Order{{Total_amount: money("5")}, {Total_amount: money("7.25")}}

	got := expectedState(models.TableState{Status: models.TableAvailable}, open)
	assert.Equal(t, models.TableOccupied, got.Status)
	assert.True(t, got.Total_amount.Equal(money("12.25")))

	got = expectedState(models.TableState{Status: models.TableOccupied, Total_amount: money("3")}, nil)
	assert.Equal(t, models.TableDirty, got.Status)
	assert.True(t, got.Total_amount.IsZero())

	got = expectedState(models.TableState{Status: models.TableAvailable, Total_amount: money("3")}, nil)
	assert.Equal(t, models.TableAvailable, got.Status)
	assert.True(t, got.Total_amount.IsZero())
}

func TestRunReconcilerDrainsPending(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.tables.failAdd.Store(true)
	_, err := f.engine.RecordOrder(ctx, Submission{TableID: 1, Items: []models.OrderItem{item("soda", "4.00", 1)}})
	require.True(t, models.IsPartialCommit(err))
	f.tables.failAdd.Store(false)

	go f.engine.RunReconciler(ctx, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(f.engine.Pending()) == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, f.table(t, 1).Total_amount.Equal(money("4.00")))
}

func TestPartialCommitCarriesSubmission(t *testing.T) {
	f := newFixture(t)
	f.tables.failAdd.Store(true)

	order, err := f.engine.RecordOrder(context.Background(), Submission{
		ID: "sub-42", TableID: 2, Items: []models.OrderItem{item("fries", "6.00", 1)},
	})
	var partial *models.PartialCommitError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "sub-42", partial.Submission_id)
	assert.Equal(t, []string{order.Order_id}, partial.Order_ids)
}

func TestResubmissionWithOtherItemsIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.tables.failAdd.Store(true)
	first, err := f.engine.RecordOrder(ctx, Submission{
		ID: "edited", TableID: 1, Items: []models.OrderItem{item("burger", "10.00", 1)},
	})
	require.True(t, models.IsPartialCommit(err))
	f.tables.failAdd.Store(false)

	_, err = f.engine.RecordOrder(ctx, Submission{
		ID: "edited", TableID: 1, Items: []models.OrderItem{item("burger", "10.00", 1), item("soda", "5.00", 2)},
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "submission_id", verr.Field)
	assert.Contains(t, verr.Message, first.Order_id)

	// a price change alone is still the same submission
	again, err := f.engine.RecordOrder(ctx, Submission{
		ID: "edited", TableID: 1, Items: []models.OrderItem{item("burger", "11.00", 1)},
	})
	require.NoError(t, err)
	assert.Equal(t, first.Order_id, again.Order_id)
	assert.True(t, f.table(t, 1).Total_amount.Equal(money("10.00")))
}

func TestCloseBillReportsFinalizedOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.engine.RecordOrder(ctx, Submission{TableID: 3, Items: []models.OrderItem{item("tea", "3.00", 1)}})
		require.NoError(t, err)
	}

	bill, err := f.engine.CloseBill(ctx, 3)
	require.NoError(t, err)
	require.Len(t, bill.Orders, 2)
	for _, o := range bill.Orders {
		assert.Equal(t, models.OrderFinalized, o.Status)
	}
}

func TestReleaseAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []int{1, 2} {
		_, err := f.engine.RecordOrder(ctx, Submission{TableID: id, Items: []models.OrderItem{item("soup", "8.00", 1)}})
		require.NoError(t, err)
		_, err = f.engine.CloseBill(ctx, id)
		require.NoError(t, err)
	}
	// table 2 gets a new guest before the sweep
	_, err := f.engine.RecordOrder(ctx, Submission{TableID: 2, Items: []models.OrderItem{item("soup", "8.00", 1)}})
	require.NoError(t, err)

	released, err := f.engine.ReleaseAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, released)
	assert.Equal(t, models.TableAvailable, f.table(t, 1).Status)
	assert.Equal(t, models.TableOccupied, f.table(t, 2).Status)
	assert.Equal(t, models.TableAvailable, f.table(t, 3).Status)

	released, err = f.engine.ReleaseAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, released)
}
