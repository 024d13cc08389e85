// Package store defines the persistence collaborators of the POS service.
// Backends live in the memory, mongostore and pgstore subpackages.
package store

import (
	"context"
	"time"

	"go-restaurant-pos/models"

	"github.com/shopspring/decimal"
)

type CatalogStore interface {
	ListActiveProducts(ctx context.Context, categoryID string) ([]models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, c models.Category) (models.Category, error)
}

type TableRegistry interface {
	ListTables(ctx context.Context) ([]models.Table, error)
	GetTable(ctx context.Context, id int) (models.Table, error)
	CreateTable(ctx context.Context, t models.Table) (models.Table, error)
	UpdateTable(ctx context.Context, id int, patch models.TablePatch) (models.Table, error)
	// AddToBalance atomically adds delta to the balance and marks the table occupied.
	AddToBalance(ctx context.Context, id int, delta decimal.Decimal) (models.Table, error)
	// CompareAndSwap writes next only if the stored state still equals prev.
	CompareAndSwap(ctx context.Context, id int, prev, next models.TableState) (bool, error)
}

type OrderLedger interface {
	// InsertOrder writes the order and its items as one unit. It returns
	// models.ErrDuplicateSubmission if the submission id is already recorded.
	InsertOrder(ctx context.Context, o models.Order) (models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	GetOrderBySubmission(ctx context.Context, submissionID string) (models.Order, error)
	ListOrdersForTable(ctx context.Context, tableID int, exclude []models.OrderStatus) ([]models.Order, error)
	ListOrdersByStatus(ctx context.Context, statuses []models.OrderStatus) ([]models.Order, error)
	ListOrdersCreatedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	// ListRecentOrders returns the newest orders first, with Table_name set.
	ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	// UpdateOrderStatus moves the given orders to status, touching only those
	// currently in one of from. It returns how many were moved.
	UpdateOrderStatus(ctx context.Context, ids []string, status models.OrderStatus, from []models.OrderStatus) (int, error)
}

// Backend bundles the collaborators provided by one storage technology.
type Backend struct {
	Catalog CatalogStore
	Tables  TableRegistry
	Orders  OrderLedger
	Close   func(ctx context.Context) error
}

func ContainsStatus(statuses []models.OrderStatus, s models.OrderStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}
