// Package cart holds the order being assembled at a terminal before it is sent
// to the billing engine. A Cart belongs to one terminal session and is not
// safe for concurrent use.
package cart

import (
	"context"

	"go-restaurant-pos/billing"
	"go-restaurant-pos/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Line struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Recorder interface {
	RecordOrder(ctx context.Context, sub billing.Submission) (models.Order, error)
}

type Cart struct {
	lines        []Line
	tableID      int
	submissionID string
}

func New() *Cart {
	return &Cart{}
}

// AddItem adds quantity units of p, merging with an existing line.
func (c *Cart) AddItem(p models.Product, quantity int) error {
	if quantity <= 0 {
		return models.NewValidationError("quantity", "quantity must be positive, got %d", quantity)
	}
	if !p.Selectable() {
		return models.NewValidationError("product_id", "%s is paused", p.Name)
	}
	for i := range c.lines {
		if c.lines[i].Product.Product_id == p.Product_id {
			c.lines[i].Quantity += quantity
			return nil
		}
	}
	c.lines = append(c.lines, Line{Product: p, Quantity: quantity})
	return nil
}

// RemoveItem takes one unit of the product off the cart. Unknown ids are ignored.
func (c *Cart) RemoveItem(productID string) {
	for i := range c.lines {
		if c.lines[i].Product.Product_id != productID {
			continue
		}
		c.lines[i].Quantity--
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return
	}
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) Quantity(productID string) int {
	for _, l := range c.lines {
		if l.Product.Product_id == productID {
			return l.Quantity
		}
	}
	return 0
}

func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

func (c *Cart) SelectTable(tableID int) { c.tableID = tableID }

func (c *Cart) Table() int { return c.tableID }

// SubmissionID is empty until the first submit attempt.
func (c *Cart) SubmissionID() string { return c.submissionID }

// ResumeSubmission restores the id of an earlier attempt so a retried
// request is recognised as the same submission.
func (c *Cart) ResumeSubmission(id string) { c.submissionID = id }

func (c *Cart) Clear() {
	c.lines = nil
	c.submissionID = ""
}

// Items snapshots the lines as order items, capturing current prices.
func (c *Cart) Items() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, models.OrderItem{
			Product_id:   l.Product.Product_id,
			Product_name: l.Product.Name,
			Quantity:     l.Quantity,
			Unit_price:   l.Product.Price,
		})
	}
	return items
}

// Submit records the cart as one order for tableID, or for the selected table
// when tableID is zero. The cart is cleared once the order is in the ledger,
// which includes a partial commit. On any other failure it keeps its lines and
// submission id so a retry cannot charge twice.
func (c *Cart) Submit(ctx context.Context, tableID int, r Recorder) (models.Order, error) {
	if tableID == 0 {
		tableID = c.tableID
	}
	if tableID <= 0 {
		return models.Order{}, models.NewValidationError("table_id", "no table selected")
	}
	if c.Empty() {
		return models.Order{}, models.NewValidationError("items", "cart is empty")
	}
	if c.submissionID == "" {
		c.submissionID = uuid.NewString()
	}
	order, err := r.RecordOrder(ctx, billing.Submission{
		ID:      c.submissionID,
		TableID: tableID,
		Items:   c.Items(),
	})
	if err != nil && !models.IsPartialCommit(err) {
		return order, err
	}
	c.Clear()
	c.tableID = tableID
	return order, err
}
