package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// ListStock retrieves the house's stock entries, newest first. Removed
// entries are included; the client greys them out.
func (s *SQLiteStore) ListStock(ctx context.Context, houseID string) ([]*models.Stock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, created_by, paid_by_id, product_id, cost, amount, removed
		 FROM stocks WHERE house_id = ? ORDER BY created_at DESC`,
		houseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	defer rows.Close()

	var stocks []*models.Stock
	for rows.Next() {
		stock, err := scanStock(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, stock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock: %w", err)
	}
	return stocks, nil
}

// GetStock retrieves one live stock entry of this house.
func (t *houseTx) GetStock(id string) (*models.Stock, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT id, created_at, created_by, paid_by_id, product_id, cost, amount, removed
		 FROM stocks WHERE id = ? AND house_id = ?`,
		id, t.house.ID,
	)
	stock, err := scanStock(row.Scan)
	if err == sql.ErrNoRows || (err == nil && stock.Removed) {
		return nil, apperr.New(apperr.CodeNotFound, "stock %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	return stock, nil
}

// PutStock inserts a new stock entry, populating ID and CreatedAt if unset.
func (t *houseTx) PutStock(stock *models.Stock) error {
	if stock.ID == "" {
		stock.ID = uuid.New().String()
	}
	if stock.CreatedAt.IsZero() {
		stock.CreatedAt = time.Now()
	}

	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO stocks (id, house_id, created_at, created_by, paid_by_id, product_id, cost, amount, removed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stock.ID, t.house.ID, stock.CreatedAt.UnixMilli(), stock.CreatedBy,
		stock.PaidByID, stock.ProductID, stock.Cost, stock.Amount, stock.Removed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stock: %w", err)
	}
	return nil
}

// UpdateStock overwrites an existing stock entry.
func (t *houseTx) UpdateStock(stock *models.Stock) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE stocks SET paid_by_id = ?, product_id = ?, cost = ?, amount = ?, removed = ?
		 WHERE id = ? AND house_id = ?`,
		stock.PaidByID, stock.ProductID, stock.Cost, stock.Amount, stock.Removed,
		stock.ID, t.house.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.CodeNotFound, "stock %s not found", stock.ID)
	}
	return nil
}

func scanStock(scan func(dest ...any) error) (*models.Stock, error) {
	stock := &models.Stock{}
	var createdAt int64
	err := scan(&stock.ID, &createdAt, &stock.CreatedBy, &stock.PaidByID,
		&stock.ProductID, &stock.Cost, &stock.Amount, &stock.Removed)
	if err != nil {
		return nil, err
	}
	stock.CreatedAt = time.UnixMilli(createdAt)
	return stock, nil
}
