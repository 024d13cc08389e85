package billing

import (
	"time"

	"go-restaurant-pos/models"

	"github.com/shopspring/decimal"
)

type Bill struct {
	Table_id   int             `json:"table_id"`
	Table_name string          `json:"table_name"`
	Orders     []models.Order  `json:"orders"`
	Items      []BillLine      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	Closed_at  *time.Time      `json:"closed_at,omitempty"`
}

// BillLine merges the items of every order that share product and price.
type BillLine struct {
	Product_id   string          `json:"product_id"`
	Product_name string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	Unit_price   decimal.Decimal `json:"unit_price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

func (b Bill) OrderIDs() []string {
	ids := make([]string, 0, len(b.Orders))
	for _, o := range b.Orders {
		ids = append(ids, o.Order_id)
	}
	return ids
}

func buildBill(table models.Table, orders []models.Order) Bill {
	bill := Bill{
		Table_id:   table.Table_id,
		Table_name: table.Name,
		Orders:     orders,
		Items:      []BillLine{},
		Total:      models.SumOrders(orders),
	}
	index := map[string]int{}
	for _, o := range orders {
		for _, item := range o.Order_items {
			key := item.Product_id + "@" + item.Unit_price.String()
			if i, ok := index[key]; ok {
				bill.Items[i].Quantity += item.Quantity
				bill.Items[i].Subtotal = bill.Items[i].Subtotal.Add(item.Subtotal())
				continue
			}
			index[key] = len(bill.Items)
			bill.Items = append(bill.Items, BillLine{
				Product_id:   item.Product_id,
				Product_name: item.Product_name,
				Quantity:     item.Quantity,
				Unit_price:   item.Unit_price,
				Subtotal:     item.Subtotal(),
			})
		}
	}
	return bill
}
