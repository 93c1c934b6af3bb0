package models

import "time"

// AccountType distinguishes user-backed accounts from shared (virtual)
// accounts such as a communal fridge.
type AccountType string

const (
	AccountTypeUser   AccountType = "user"
	AccountTypeShared AccountType = "shared"
)

// RoleAdmin marks an account that may manage house membership and shared
// accounts.
const RoleAdmin = "ADMIN"

// House is the shared ledger scope: members, products and the full balance
// state. It is persisted as a single document so that one settlement
// computation always sees one consistent snapshot.
type House struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`

	// InviteCode is required to join the house and expires.
	InviteCode       string    `json:"inviteCode"`
	InviteCodeExpiry time.Time `json:"inviteCodeExpiry"`

	// Members holds the user IDs of all joined users. Accounts is the
	// ordered list of their accounts; SharedAccounts the ordered list of
	// virtual accounts. Order is stable and is what settlement remainder
	// distribution cycles over.
	Members        []string  `json:"members"`
	Accounts       []Account `json:"accounts"`
	SharedAccounts []Account `json:"sharedAccounts"`
	Products       []Product `json:"products"`

	// SettledAt is the time of the last full house settlement. IsSettling
	// is the in-progress flag; it is checked and set inside the same store
	// transaction that runs the settlement computation.
	SettledAt  *time.Time `json:"settledAt,omitempty"`
	IsSettling bool       `json:"isSettling"`

	Archived   bool       `json:"archived,omitempty"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`

	// TotalIn and TotalOut are the house-level aggregates. Outside an
	// in-flight mutation, the sum of all balances' totals equals the sum
	// of all product data totals.
	TotalIn  int64 `json:"totalIn"`
	TotalOut int64 `json:"totalOut"`

	// ProductData tracks acquisition/consumption per product across the
	// whole house; Balances tracks it per account.
	ProductData map[string]*ProductData `json:"productData"`
	Balances    map[string]*Balance     `json:"balances"`
}

// Account is a member of the house ledger, either backed by a user or shared.
type Account struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`

	// UserID is empty for shared accounts.
	UserID   string   `json:"userId,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	PhotoURL string   `json:"photoUrl,omitempty"`

	// SettledAt is stamped when this specific account is settled (user
	// payout or shared-account reimbursement). Transactions created before
	// this time can no longer be edited.
	SettledAt *time.Time `json:"settledAt,omitempty"`
	Removed   bool       `json:"removed,omitempty"`
}

// HasRole reports whether the account carries the given role.
func (a *Account) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Product is a purchasable good with a unit price in minor currency units.
type Product struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
}

// Balance is the running per-account state: value contributed (TotalIn),
// value consumed (TotalOut) and the per-product breakdown.
type Balance struct {
	TotalIn  int64                   `json:"totalIn"`
	TotalOut int64                   `json:"totalOut"`
	Products map[string]*ProductData `json:"products,omitempty"`
}

// Clone returns a deep copy, used to snapshot a balance into a settlement
// record before it is zeroed.
func (b *Balance) Clone() *Balance {
	if b == nil {
		return nil
	}
	c := &Balance{TotalIn: b.TotalIn, TotalOut: b.TotalOut}
	if b.Products != nil {
		c.Products = make(map[string]*ProductData, len(b.Products))
		for id, pd := range b.Products {
			cp := *pd
			c.Products[id] = &cp
		}
	}
	return c
}

// ProductData tracks units and value moving in and out for one product.
// Amounts are hundredths of a unit, totals are minor currency units.
// AmountOut <= AmountIn and TotalOut <= TotalIn are expected but not
// enforced: stock recorded late legitimately produces transient
// over-consumption, and the settlement formulas remain total over such
// states.
type ProductData struct {
	AmountIn  int64 `json:"amountIn"`
	AmountOut int64 `json:"amountOut"`
	TotalIn   int64 `json:"totalIn"`
	TotalOut  int64 `json:"totalOut"`
}

// IsMember reports whether the user has joined this house.
func (h *House) IsMember(userID string) bool {
	for _, m := range h.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// AccountByUserID returns the user account belonging to the given user, or
// nil if the user has no account in this house.
func (h *House) AccountByUserID(userID string) *Account {
	for i := range h.Accounts {
		if h.Accounts[i].UserID == userID {
			return &h.Accounts[i]
		}
	}
	return nil
}

// AccountByID returns the user or shared account with the given ID, or nil.
func (h *House) AccountByID(id string) *Account {
	for i := range h.Accounts {
		if h.Accounts[i].ID == id {
			return &h.Accounts[i]
		}
	}
	return h.SharedAccountByID(id)
}

// SharedAccountByID returns the shared account with the given ID, or nil.
func (h *House) SharedAccountByID(id string) *Account {
	for i := range h.SharedAccounts {
		if h.SharedAccounts[i].ID == id {
			return &h.SharedAccounts[i]
		}
	}
	return nil
}

// ProductByID returns the product with the given ID, or nil.
func (h *House) ProductByID(id string) *Product {
	for i := range h.Products {
		if h.Products[i].ID == id {
			return &h.Products[i]
		}
	}
	return nil
}
