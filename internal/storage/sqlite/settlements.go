package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// PutSettlement inserts a new settlement record. Settlements are immutable:
// there is no update path. The full record is stored as one JSON document;
// id, house and type are projected into columns for listing.
func (t *houseTx) PutSettlement(settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	settlement.HouseID = t.house.ID
	if settlement.CreatedAt.IsZero() {
		settlement.CreatedAt = time.Now()
	}

	doc, err := json.Marshal(settlement)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement: %w", err)
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO settlements (id, house_id, created_at, type, doc)
		 VALUES (?, ?, ?, ?, ?)`,
		settlement.ID, settlement.HouseID, settlement.CreatedAt.UnixMilli(),
		string(settlement.Type), string(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// ListSettlements retrieves the house's settlement records, newest first.
func (s *SQLiteStore) ListSettlements(ctx context.Context, houseID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT doc FROM settlements WHERE house_id = ? ORDER BY created_at DESC",
		houseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlement := &models.Settlement{}
		if err := json.Unmarshal([]byte(doc), settlement); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}
