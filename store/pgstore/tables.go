package pgstore

import (
	"context"
	"fmt"

	"go-restaurant-pos/helpers"
	"go-restaurant-pos/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const tableColumns = `id, name, status, total_cents, updated_at`

func scanTable(row pgx.Row) (models.Table, error) {
	var (
		t      models.Table
		status string
		cents  int64
	)
	err := row.Scan(&t.Table_id, &t.Name, &status, &cents, &t.Updated_at)
	t.Status = models.TableStatus(status)
	t.Total_amount = helpers.FromCents(cents)
	return t, err
}

func (s *Store) ListTables(ctx context.Context) ([]models.Table, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+tableColumns+` FROM dining_tables ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	out := []models.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTable(ctx context.Context, id int) (models.Table, error) {
	t, err := scanTable(s.pool.QueryRow(ctx, `SELECT `+tableColumns+` FROM dining_tables WHERE id=$1`, id))
	if noRows(err) {
		return models.Table{}, models.TableNotFound(id)
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("get table %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) CreateTable(ctx context.Context, t models.Table) (models.Table, error) {
	if t.Status == "" {
		t.Status = models.TableAvailable
	}
	created, err := scanTable(s.pool.QueryRow(ctx, `
		INSERT INTO dining_tables (id, name, status, total_cents, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+tableColumns,
		t.Table_id, t.Name, string(t.Status), helpers.ToCents(t.Total_amount), s.now()))
	if isUniqueViolation(err, "") {
		return models.Table{}, models.NewValidationError("table_id", "table %d already exists", t.Table_id)
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("insert table: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateTable(ctx context.Context, id int, patch models.TablePatch) (models.Table, error) {
	var status *string
	if patch.Status != nil {
		v := string(*patch.Status)
		status = &v
	}
	var cents *int64
	if patch.Total_amount != nil {
		v := helpers.ToCents(*patch.Total_amount)
		cents = &v
	}
	t, err := scanTable(s.pool.QueryRow(ctx, `
		UPDATE dining_tables
		SET status = COALESCE($2, status), total_cents = COALESCE($3, total_cents), updated_at = $4
		WHERE id = $1
		RETURNING `+tableColumns, id, status, cents, s.now()))
	if noRows(err) {
		return models.Table{}, models.TableNotFound(id)
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("update table %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) AddToBalance(ctx context.Context, id int, delta decimal.Decimal) (models.Table, error) {
	t, err := scanTable(s.pool.QueryRow(ctx, `
		UPDATE dining_tables
		SET total_cents = total_cents + $2, status = 'occupied', updated_at = $3
		WHERE id = $1
		RETURNING `+tableColumns, id, helpers.ToCents(delta), s.now()))
	if noRows(err) {
		return models.Table{}, models.TableNotFound(id)
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("add to balance of table %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, id int, prev, next models.TableState) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE dining_tables
		SET status = $4, total_cents = $5, updated_at = $6
		WHERE id = $1 AND status = $2 AND total_cents = $3
	`, id, string(prev.Status), helpers.ToCents(prev.Total_amount),
		string(next.Status), helpers.ToCents(next.Total_amount), s.now())
	if err != nil {
		return false, fmt.Errorf("swap table %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
