package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// ListTransactions retrieves the house's transactions, newest first.
// Removed transactions are included; the client greys them out.
func (s *SQLiteStore) ListTransactions(ctx context.Context, houseID string) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, created_by, items, removed
		 FROM transactions WHERE house_id = ? ORDER BY created_at DESC`,
		houseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// GetTransaction retrieves one live transaction of this house.
func (t *houseTx) GetTransaction(id string) (*models.Transaction, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT id, created_at, created_by, items, removed
		 FROM transactions WHERE id = ? AND house_id = ?`,
		id, t.house.ID,
	)
	transaction, err := scanTransaction(row.Scan)
	if err == sql.ErrNoRows || (err == nil && transaction.Removed) {
		return nil, apperr.New(apperr.CodeNotFound, "transaction %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return transaction, nil
}

// PutTransaction inserts a new transaction, populating ID and CreatedAt if
// unset. Items are stored as one JSON column: they are only ever read and
// written as a unit.
func (t *houseTx) PutTransaction(transaction *models.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}
	if transaction.CreatedAt.IsZero() {
		transaction.CreatedAt = time.Now()
	}

	items, err := json.Marshal(transaction.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction items: %w", err)
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO transactions (id, house_id, created_at, created_by, items, removed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		transaction.ID, t.house.ID, transaction.CreatedAt.UnixMilli(),
		transaction.CreatedBy, string(items), transaction.Removed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// UpdateTransaction overwrites an existing transaction.
func (t *houseTx) UpdateTransaction(transaction *models.Transaction) error {
	items, err := json.Marshal(transaction.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction items: %w", err)
	}
	res, err := t.tx.ExecContext(t.ctx,
		"UPDATE transactions SET items = ?, removed = ? WHERE id = ? AND house_id = ?",
		string(items), transaction.Removed, transaction.ID, t.house.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.New(apperr.CodeNotFound, "transaction %s not found", transaction.ID)
	}
	return nil
}

func scanTransaction(scan func(dest ...any) error) (*models.Transaction, error) {
	transaction := &models.Transaction{}
	var createdAt int64
	var items string
	err := scan(&transaction.ID, &createdAt, &transaction.CreatedBy, &items, &transaction.Removed)
	if err != nil {
		return nil, err
	}
	transaction.CreatedAt = time.UnixMilli(createdAt)
	if err := json.Unmarshal([]byte(items), &transaction.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction items: %w", err)
	}
	return transaction, nil
}
