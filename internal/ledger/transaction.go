package ledger

import (
	"fmt"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// ItemValue is the monetary value of consuming amount (hundredths of a unit)
// at price (minor units per whole unit), rounded to the nearest minor unit,
// halves away from zero.
func ItemValue(amount, price int64) int64 {
	v := amount * price
	if v >= 0 {
		return (v + 50) / 100
	}
	return (v - 50) / 100
}

// itemDelta is a signed per-item change. Value is carried explicitly so that
// edit deltas can be differences of rounded absolute values rather than
// roundings of differences.
type itemDelta struct {
	accountID string
	productID string
	amount    int64
	value     int64
}

// TransactionAdded returns the increments for recording a new transaction:
// per item the consuming account's balance and the product's data grow by
// the item's amount and value, as does the house total.
//
// Fails with not-found if an item references an account the house does not
// have.
func TransactionAdded(h *models.House, t *models.Transaction) (Update, error) {
	deltas := make([]itemDelta, len(t.Items))
	for i, item := range t.Items {
		deltas[i] = itemDelta{
			accountID: item.AccountID,
			productID: item.ProductID,
			amount:    item.Amount,
			value:     ItemValue(item.Amount, item.ProductPrice),
		}
	}
	return transactionUpdate(h, deltas)
}

// TransactionEdited compares the stored transaction with the updated one and
// returns the increments for the difference, plus the item list to store
// (items reduced to zero are dropped). A transaction left without items is
// to be marked removed by the caller.
//
// Items are matched by position against the stored transaction; items beyond
// the stored list are additions. Fails with failed-precondition if the
// updated transaction has fewer items than the stored one, or if any
// referenced account was settled after the transaction was created: settled
// history must not move.
func TransactionEdited(h *models.House, stored, updated *models.Transaction) (Update, []models.TransactionItem, error) {
	if len(updated.Items) < len(stored.Items) {
		return nil, nil, apperr.New(apperr.CodeFailedPrecondition,
			"updated transaction must carry all %d stored items", len(stored.Items))
	}

	for _, item := range updated.Items {
		account := h.AccountByID(item.AccountID)
		if account == nil {
			return nil, nil, apperr.New(apperr.CodeNotFound, "account %s not found", item.AccountID)
		}
		if account.SettledAt != nil && account.SettledAt.After(stored.CreatedAt) {
			return nil, nil, apperr.New(apperr.CodeFailedPrecondition,
				"account %s was settled after this transaction was created", item.AccountID)
		}
	}

	deltas := make([]itemDelta, len(updated.Items))
	for i, item := range updated.Items {
		var oldAmount int64
		if i < len(stored.Items) {
			oldAmount = stored.Items[i].Amount
		}
		deltas[i] = itemDelta{
			accountID: item.AccountID,
			productID: item.ProductID,
			amount:    item.Amount - oldAmount,
			value:     ItemValue(item.Amount, item.ProductPrice) - ItemValue(oldAmount, item.ProductPrice),
		}
	}

	u, err := transactionUpdate(h, deltas)
	if err != nil {
		return nil, nil, err
	}

	kept := make([]models.TransactionItem, 0, len(updated.Items))
	for _, item := range updated.Items {
		if item.Amount > 0 {
			kept = append(kept, item)
		}
	}
	return u, kept, nil
}

func transactionUpdate(h *models.House, deltas []itemDelta) (Update, error) {
	u := make(Update)
	var totalOut int64

	for _, d := range deltas {
		if h.AccountByID(d.accountID) == nil {
			return nil, apperr.New(apperr.CodeNotFound, "account %s not found", d.accountID)
		}

		totalOut += d.value
		u.Inc(fmt.Sprintf("productData.%s.totalOut", d.productID), d.value)
		u.Inc(fmt.Sprintf("productData.%s.amountOut", d.productID), d.amount)
		u.Inc(fmt.Sprintf("balances.%s.totalOut", d.accountID), d.value)
		u.Inc(fmt.Sprintf("balances.%s.products.%s.totalOut", d.accountID, d.productID), d.value)
		u.Inc(fmt.Sprintf("balances.%s.products.%s.amountOut", d.accountID, d.productID), d.amount)
	}

	u.Inc("totalOut", totalOut)
	return u, nil
}
