package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-restaurant-pos/models"
	"go-restaurant-pos/notify"

	"github.com/shopspring/decimal"
)

const maxReconcileAttempts = 3

// Reconcile recomputes the table balance from its open orders. It is safe to
// run any number of times.
func (e *Engine) Reconcile(ctx context.Context, tableID int) (models.Table, error) {
	unlock := e.locks.lock(tableID)
	defer unlock()
	return e.reconcileLocked(ctx, tableID)
}

func (e *Engine) reconcileLocked(ctx context.Context, tableID int) (models.Table, error) {
	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		table, err := e.tables.GetTable(ctx, tableID)
		if err != nil {
			return models.Table{}, fmt.Errorf("reconcile: %w", err)
		}
		open, err := e.orders.ListOrdersForTable(ctx, tableID, models.ClosedStatuses)
		if err != nil {
			return models.Table{}, fmt.Errorf("reconcile: list orders: %w", err)
		}

		current := table.State()
		target := expectedState(current, open)
		if current.Equal(target) {
			e.unflag(tableID)
			return table, nil
		}
		swapped, err := e.tables.CompareAndSwap(ctx, tableID, current, target)
		if err != nil {
			return models.Table{}, fmt.Errorf("reconcile: %w", err)
		}
		if !swapped {
			continue
		}
		e.unflag(tableID)
		e.log.InfoContext(ctx, "table_reconciled",
			"table_id", tableID,
			"from_status", current.Status, "from_total", current.Total_amount.StringFixed(2),
			"to_status", target.Status, "to_total", target.Total_amount.StringFixed(2))
		e.publish(notify.TopicTables)
		table.Status = target.Status
		table.Total_amount = target.Total_amount
		return table, nil
	}
	return models.Table{}, fmt.Errorf("reconcile table %d: state changed on every attempt", tableID)
}

// expectedState is the state a table must have given its open orders.
func expectedState(current models.TableState, open []models.Order) models.TableState {
	if len(open) > 0 {
		return models.TableState{Status: models.TableOccupied, Total_amount: models.SumOrders(open)}
	}
	if current.Status == models.TableOccupied {
		return models.TableState{Status: models.TableDirty, Total_amount: decimal.Zero}
	}
	return models.TableState{Status: current.Status, Total_amount: decimal.Zero}
}

// ReconcileAll repairs every table and reports every failure.
func (e *Engine) ReconcileAll(ctx context.Context) error {
	tables, err := e.tables.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("reconcile all: %w", err)
	}
	var errs []error
	for _, t := range tables {
		if _, err := e.Reconcile(ctx, t.Table_id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReconcilePending repairs the tables flagged by partial commits.
func (e *Engine) ReconcilePending(ctx context.Context) error {
	var errs []error
	for _, id := range e.Pending() {
		if _, err := e.Reconcile(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunReconciler drains the pending set every interval until ctx is done.
func (e *Engine) RunReconciler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if len(e.Pending()) == 0 {
				continue
			}
			if err := e.ReconcilePending(ctx); err != nil {
				e.log.WarnContext(ctx, "reconciler_pass_failed", "error", err)
			}
		}
	}
}
