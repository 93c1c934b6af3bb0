package models

import "time"

// Transaction is a consumption event split over one or more accounts.
// Edits are expressed as the signed per-item delta between the stored and the
// updated items; an item reduced to zero is dropped and a transaction with no
// items left is marked removed rather than deleted.
type Transaction struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	CreatedBy string            `json:"createdBy"`
	Items     []TransactionItem `json:"items"`
	Removed   bool              `json:"removed,omitempty"`
}

// TransactionItem charges Amount units of a product to one account.
// ProductPrice is the unit price at the time of consumption, in minor
// currency units, so later price changes do not rewrite history.
type TransactionItem struct {
	AccountID    string `json:"accountId"`
	ProductID    string `json:"productId"`
	Amount       int64  `json:"amount"`
	ProductPrice int64  `json:"productPrice"`
}
