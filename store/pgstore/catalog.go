package pgstore

import (
	"context"
	"fmt"

	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const productColumns = `id, name, price_cents, category_id, status, description, created_at, updated_at`

func scanProduct(row pgx.Row) (models.Product, error) {
	var (
		p      models.Product
		cents  int64
		status string
	)
	err := row.Scan(&p.Product_id, &p.Name, &cents, &p.Category_id, &status, &p.Description, &p.Created_at, &p.Updated_at)
	p.Price = helpers.FromCents(cents)
	p.Status = models.ProductStatus(status)
	return p, err
}

func (s *Store) ListActiveProducts(ctx context.Context, categoryID string) ([]models.Product, error) {
	return s.ListProducts(ctx, models.ProductFilter{Status: models.ProductActive, Category_id: categoryID})
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR category_id = $2)
		ORDER BY lower(name)
	`, string(filter.Status), filter.Category_id)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (models.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if noRows(err) {
		return models.Product{}, models.ProductNotFound(id)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.Product_id == "" {
		p.Product_id = uuid.NewString()
	}
	now := s.now()
	created, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, price_cents, category_id, status, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING `+productColumns,
		p.Product_id, p.Name, helpers.ToCents(p.Price), p.Category_id, string(p.Status), p.Description, now))
	if err != nil {
		return models.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	updated, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET name=$2, price_cents=$3, category_id=$4, status=$5, description=$6, updated_at=$7
		WHERE id=$1
		RETURNING `+productColumns,
		p.Product_id, p.Name, helpers.ToCents(p.Price), p.Category_id, string(p.Status), p.Description, s.now()))
	if noRows(err) {
		return models.Product{}, models.ProductNotFound(p.Product_id)
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("update product %s: %w", p.Product_id, err)
	}
	return updated, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.Category_id, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if c.Category_id == "" {
		c.Category_id = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO categories (id, name, icon) VALUES ($1, $2, $3)`, c.Category_id, c.Name, c.Icon)
	if err != nil {
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}
