// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/MarnickvdA/streepn-serverless/internal/ledger"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// Store defines the interface for ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// CreateUser persists a new user. Fails with already-exists if the
	// email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email address.
	// Returns (nil, nil) if no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	// Returns (nil, nil) if no such user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateHouse persists a new house document.
	// The house.ID field will be populated by the store if empty.
	CreateHouse(ctx context.Context, house *models.House) error

	// GetHouse retrieves a house document by ID outside a transaction.
	// Fails with not-found if the house does not exist.
	GetHouse(ctx context.Context, houseID string) (*models.House, error)

	// GetHouseByInviteCode retrieves the house carrying the given invite
	// code. Fails with not-found if no house carries it.
	GetHouseByInviteCode(ctx context.Context, code string) (*models.House, error)

	// ListHousesByUser retrieves all houses the user is a member of,
	// newest first.
	ListHousesByUser(ctx context.Context, userID string) ([]*models.House, error)

	// RunHouseTx loads the house document, runs fn against it and persists
	// the result atomically. All balance mutations go through here: fn sees
	// one consistent snapshot, and writes made through the HouseTx commit
	// together or not at all. Returning an error from fn rolls back.
	RunHouseTx(ctx context.Context, houseID string, fn func(tx HouseTx) error) error

	// ListStock retrieves the house's stock entries, newest first.
	ListStock(ctx context.Context, houseID string) ([]*models.Stock, error)

	// ListTransactions retrieves the house's transactions, newest first.
	ListTransactions(ctx context.Context, houseID string) ([]*models.Transaction, error)

	// ListSettlements retrieves the house's settlement records, newest
	// first.
	ListSettlements(ctx context.Context, houseID string) ([]*models.Settlement, error)

	// Close releases any resources held by the store.
	Close() error
}

// HouseTx is the handle fn receives inside RunHouseTx. The house snapshot
// is loaded once at the start; Apply mutates it in memory and the final
// state is written back on commit, alongside any record writes.
type HouseTx interface {
	// House returns the loaded snapshot. Mutations must go through Apply.
	House() *models.House

	// Apply folds a ledger update into the snapshot.
	Apply(u ledger.Update) error

	// GetStock retrieves one stock entry of this house.
	// Fails with not-found if it does not exist or is removed.
	GetStock(id string) (*models.Stock, error)

	// PutStock inserts a new stock entry, populating ID if empty.
	PutStock(s *models.Stock) error

	// UpdateStock overwrites an existing stock entry.
	UpdateStock(s *models.Stock) error

	// GetTransaction retrieves one transaction of this house.
	// Fails with not-found if it does not exist or is removed.
	GetTransaction(id string) (*models.Transaction, error)

	// PutTransaction inserts a new transaction, populating ID if empty.
	PutTransaction(t *models.Transaction) error

	// UpdateTransaction overwrites an existing transaction.
	UpdateTransaction(t *models.Transaction) error

	// PutSettlement inserts a new settlement record, populating ID and
	// HouseID.
	PutSettlement(s *models.Settlement) error
}
