package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/ledger"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
	"github.com/MarnickvdA/streepn-serverless/internal/storage"
)

// CreateHouse persists a new house document and its member projection.
func (s *SQLiteStore) CreateHouse(ctx context.Context, house *models.House) error {
	if house.ID == "" {
		house.ID = uuid.New().String()
	}
	if house.CreatedAt.IsZero() {
		house.CreatedAt = time.Now()
	}

	doc, err := json.Marshal(house)
	if err != nil {
		return fmt.Errorf("failed to marshal house: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO houses (id, doc, invite_code, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		house.ID, string(doc), house.InviteCode, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert house: %w", err)
	}

	if err := syncMembers(ctx, tx, house); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetHouse retrieves a house document by ID.
func (s *SQLiteStore) GetHouse(ctx context.Context, houseID string) (*models.House, error) {
	return scanHouse(s.db.QueryRowContext(ctx,
		"SELECT doc FROM houses WHERE id = ?", houseID))
}

// GetHouseByInviteCode retrieves the house carrying the given invite code.
func (s *SQLiteStore) GetHouseByInviteCode(ctx context.Context, code string) (*models.House, error) {
	return scanHouse(s.db.QueryRowContext(ctx,
		"SELECT doc FROM houses WHERE invite_code = ? AND invite_code != ''", code))
}

// ListHousesByUser retrieves all houses the user is a member of, newest first.
func (s *SQLiteStore) ListHousesByUser(ctx context.Context, userID string) ([]*models.House, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.doc FROM houses h
		 JOIN house_members m ON m.house_id = h.id
		 WHERE m.user_id = ?
		 ORDER BY h.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list houses by user: %w", err)
	}
	defer rows.Close()

	var houses []*models.House
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan house: %w", err)
		}
		house := &models.House{}
		if err := json.Unmarshal([]byte(doc), house); err != nil {
			return nil, fmt.Errorf("failed to unmarshal house: %w", err)
		}
		houses = append(houses, house)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate houses: %w", err)
	}
	return houses, nil
}

// RunHouseTx loads the house inside an immediate transaction, runs fn and
// writes the mutated document back on commit.
func (s *SQLiteStore) RunHouseTx(ctx context.Context, houseID string, fn func(tx storage.HouseTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	house, err := scanHouse(tx.QueryRowContext(ctx,
		"SELECT doc FROM houses WHERE id = ?", houseID))
	if err != nil {
		return err
	}

	ht := &houseTx{ctx: ctx, tx: tx, house: house}
	if err := fn(ht); err != nil {
		return err
	}

	doc, err := json.Marshal(ht.house)
	if err != nil {
		return fmt.Errorf("failed to marshal house: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE houses SET doc = ?, invite_code = ?, updated_at = ? WHERE id = ?",
		string(doc), ht.house.InviteCode, time.Now().Unix(), houseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update house: %w", err)
	}
	if err := syncMembers(ctx, tx, ht.house); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// syncMembers rebuilds the membership projection from the document.
func syncMembers(ctx context.Context, tx *sql.Tx, house *models.House) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM house_members WHERE house_id = ?", house.ID); err != nil {
		return fmt.Errorf("failed to clear house members: %w", err)
	}
	for _, userID := range house.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO house_members (house_id, user_id) VALUES (?, ?)",
			house.ID, userID); err != nil {
			return fmt.Errorf("failed to insert house member: %w", err)
		}
	}
	return nil
}

func scanHouse(row *sql.Row) (*models.House, error) {
	var doc string
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "house not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get house: %w", err)
	}
	house := &models.House{}
	if err := json.Unmarshal([]byte(doc), house); err != nil {
		return nil, fmt.Errorf("failed to unmarshal house: %w", err)
	}
	return house, nil
}

// houseTx implements storage.HouseTx on top of one open SQL transaction.
type houseTx struct {
	ctx   context.Context
	tx    *sql.Tx
	house *models.House
}

var _ storage.HouseTx = (*houseTx)(nil)

func (t *houseTx) House() *models.House {
	return t.house
}

func (t *houseTx) Apply(u ledger.Update) error {
	return ledger.Apply(t.house, u)
}
