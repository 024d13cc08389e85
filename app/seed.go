package app

import (
	"context"
	"fmt"

	"go-restaurant-pos/models"
	"go-restaurant-pos/store"

	"github.com/shopspring/decimal"
)

const demoTables = 12

type demoProduct struct {
	name     string
	price    string
	category string
}

var demoCategories = []models.Category{
	{Name: "Burgers", Icon: "🍔"},
	{Name: "Drinks", Icon: "🥤"},
	{Name: "Sides", Icon: "🍟"},
	{Name: "Desserts", Icon: "🍮"},
}

var demoMenu = []demoProduct{
	{"Cheeseburger Deluxe", "32.90", "Burgers"},
	{"Bacon Burger", "29.90", "Burgers"},
	{"Guarana Soda", "7.50", "Drinks"},
	{"Orange Juice", "9.00", "Drinks"},
	{"French Fries", "14.00", "Sides"},
	{"Sausage Platter", "38.00", "Sides"},
	{"Flan", "12.00", "Desserts"},
	{"Milkshake", "18.50", "Desserts"},
}

// Seed provisions the demo tables and menu. Existing tables are kept and the
// menu is only written into an empty catalog, so running it twice is harmless.
func Seed(ctx context.Context, backend store.Backend) error {
	for id := 1; id <= demoTables; id++ {
		if _, err := backend.Tables.GetTable(ctx, id); err == nil {
			continue
		} else if !models.IsNotFound(err) {
			return fmt.Errorf("seed tables: %w", err)
		}
		_, err := backend.Tables.CreateTable(ctx, models.Table{
			Table_id: id,
			Name:     fmt.Sprintf("Table %02d", id),
			Status:   models.TableAvailable,
		})
		if err != nil {
			return fmt.Errorf("seed table %d: %w", id, err)
		}
	}

	existing, err := backend.Catalog.ListProducts(ctx, models.ProductFilter{})
	if err != nil {
		return fmt.Errorf("seed menu: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	categoryIDs := map[string]string{}
	for _, c := range demoCategories {
		created, err := backend.Catalog.CreateCategory(ctx, c)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
		categoryIDs[c.Name] = created.Category_id
	}
	for _, p := range demoMenu {
		_, err := backend.Catalog.CreateProduct(ctx, models.Product{
			Name:        p.name,
			Price:       decimal.RequireFromString(p.price),
			Category_id: categoryIDs[p.category],
			Status:      models.ProductActive,
		})
		if err != nil {
			return fmt.Errorf("seed product %s: %w", p.name, err)
		}
	}
	return nil
}
