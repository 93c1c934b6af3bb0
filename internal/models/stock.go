package models

import "time"

// Stock is an acquisition event: an account paid Cost for Amount units of a
// product. Cost is in minor currency units, Amount in hundredths of a unit.
//
// Stock is created once and afterwards only edited through signed deltas
// against the original; an edit that brings the amount to zero marks the
// record removed instead of deleting it.
type Stock struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`

	PaidByID  string `json:"paidById"`
	ProductID string `json:"productId"`
	Cost      int64  `json:"cost"`
	Amount    int64  `json:"amount"`

	Removed bool `json:"removed,omitempty"`
}
