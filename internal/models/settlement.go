package models

import "time"

// SettlementType discriminates the three settlement flavors.
type SettlementType string

const (
	// SettlementTypeHouse closes out the whole house: balances are
	// reallocated and a transfer plan is computed.
	SettlementTypeHouse SettlementType = "house"
	// SettlementTypeUserAccount nets out a single user account by
	// transferring its balance to a receiver (voluntary payout).
	SettlementTypeUserAccount SettlementType = "userAccount"
	// SettlementTypeSharedAccount reimburses a shared account by charging
	// its consumption to the debtor accounts.
	SettlementTypeSharedAccount SettlementType = "sharedAccount"
)

// Settlement is the immutable audit record of a settlement action. It
// references the balance state before settlement and snapshots account
// display names so history stays readable after renames or removals.
// A settlement is created once and never mutated.
type Settlement struct {
	ID        string         `json:"id"`
	HouseID   string         `json:"houseId"`
	CreatedAt time.Time      `json:"createdAt"`
	CreatedBy string         `json:"createdBy"`
	Type      SettlementType `json:"type"`

	// Accounts maps account ID to its display name at settlement time.
	Accounts map[string]AccountSnapshot `json:"accounts"`

	// Items is the per-account settle/owes/receives map; house settlements
	// only.
	Items map[string]*SettleItem `json:"items,omitempty"`

	// SettledAtBefore is the settled account's previous settle timestamp;
	// account settlements only.
	SettledAtBefore *time.Time `json:"settledAtBefore,omitempty"`

	// SettlerID, ReceiverID and BalanceSettled describe a user-account
	// payout: the settler's balance before zeroing moved to the receiver.
	SettlerID      string   `json:"settlerAccountId,omitempty"`
	ReceiverID     string   `json:"receiverAccountId,omitempty"`
	BalanceSettled *Balance `json:"balanceSettled,omitempty"`

	// CreditorID, Creditor and Debtors describe a shared-account
	// reimbursement: the shared account's balance before zeroing and the
	// payout charged to each debtor.
	CreditorID string                    `json:"creditorId,omitempty"`
	Creditor   *Balance                  `json:"creditor,omitempty"`
	Debtors    map[string]*AccountPayout `json:"debtors,omitempty"`
}

// AccountSnapshot preserves how an account was displayed at settlement time.
type AccountSnapshot struct {
	Name string `json:"name"`
}

// SettleItem is one account's outcome of a house settlement. Settle is the
// net amount (positive: the house owes this account). Owes and Receives are
// mirror images across the settlement: if x owes y an amount, y receives
// that amount from x.
type SettleItem struct {
	Settle   int64            `json:"settle"`
	Owes     map[string]int64 `json:"owes"`
	Receives map[string]int64 `json:"receives"`
}

// AccountPayout is one debtor's share of a shared-account reimbursement.
type AccountPayout struct {
	TotalOut int64                     `json:"totalOut"`
	Products map[string]*PayoutProduct `json:"products"`
}

// PayoutProduct is the per-product part of an AccountPayout.
type PayoutProduct struct {
	TotalOut  int64 `json:"totalOut"`
	AmountOut int64 `json:"amountOut"`
}
