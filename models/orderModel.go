package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderQueued    OrderStatus = "queued"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderFinalized OrderStatus = "finalized"
	OrderCancelled OrderStatus = "cancelled"
)

// OpenStatuses are the statuses of orders that still count towards a table balance.
var OpenStatuses = []OrderStatus{OrderQueued, OrderPreparing, OrderReady}

// ClosedStatuses are terminal.
var ClosedStatuses = []OrderStatus{OrderFinalized, OrderCancelled}

func (s OrderStatus) Open() bool {
	return s == OrderQueued || s == OrderPreparing || s == OrderReady
}

func (s OrderStatus) Valid() bool {
	return s.Open() || s == OrderFinalized || s == OrderCancelled
}

type Order struct {
	Order_id      string          `json:"order_id"`
	Submission_id string          `json:"submission_id"`
	Table_id      int             `json:"table_id" validate:"required,min=1"`
	Table_name    string          `json:"table_name,omitempty"`
	Status        OrderStatus     `json:"status" validate:"required,eq=queued|eq=preparing|eq=ready|eq=finalized|eq=cancelled"`
	Total_amount  decimal.Decimal `json:"total_amount"`
	Created_at    time.Time       `json:"created_at"`
	Updated_at    time.Time       `json:"updated_at"`
	Order_items   []OrderItem     `json:"order_items,omitempty" validate:"dive"`
}

type OrderItem struct {
	Order_item_id string          `json:"order_item_id"`
	Order_id      string          `json:"order_id"`
	Product_id    string          `json:"product_id" validate:"required"`
	Product_name  string          `json:"product_name"`
	Quantity      int             `json:"quantity" validate:"required,min=1"`
	Unit_price    decimal.Decimal `json:"unit_price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Unit_price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func SumOrders(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, order := range orders {
		total = total.Add(order.Total_amount)
	}
	return total
}
