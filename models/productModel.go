package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive ProductStatus = "active"
	ProductPaused ProductStatus = "paused"
)

type Product struct {
	Product_id  string          `json:"product_id"`
	Name        string          `json:"name" validate:"required,min=2,max=100"`
	Price       decimal.Decimal `json:"price"`
	Category_id string          `json:"category_id"`
	Status      ProductStatus   `json:"status" validate:"required,eq=active|eq=paused"`
	Description *string         `json:"description,omitempty"`
	Created_at  time.Time       `json:"created_at"`
	Updated_at  time.Time       `json:"updated_at"`
}

func (p Product) Selectable() bool {
	return p.Status == ProductActive
}

type Category struct {
	Category_id string `json:"category_id"`
	Name        string `json:"name" validate:"required,min=2,max=50"`
	Icon        string `json:"icon"`
}

// ProductFilter narrows a catalog listing. Empty fields match everything.
type ProductFilter struct {
	Status      ProductStatus
	Category_id string
}

func (f ProductFilter) Match(p Product) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Category_id != "" && p.Category_id != f.Category_id {
		return false
	}
	return true
}
