package ledger

import (
	"fmt"

	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// StockAdded returns the increments for recording a new stock entry: the
// payer's balance and the product's data both grow by the stock's cost and
// amount, as does the house total.
func StockAdded(s *models.Stock) Update {
	u := make(Update)
	incStock(u, s.PaidByID, s.ProductID, s.Cost, s.Amount)
	return u
}

// StockEdited returns the increments that move the balance state from the
// original stock entry to the updated one.
//
// When payer and product are unchanged the edit is a single signed delta
// (newCost-oldCost, newAmount-oldAmount) on the original entry. When either
// changed, the original contribution is negated in full and a fresh positive
// entry is written for the updated payer and product.
func StockEdited(original, updated *models.Stock) Update {
	u := make(Update)
	if original.PaidByID == updated.PaidByID && original.ProductID == updated.ProductID {
		incStock(u, original.PaidByID, original.ProductID,
			updated.Cost-original.Cost, updated.Amount-original.Amount)
		return u
	}
	incStock(u, original.PaidByID, original.ProductID, -original.Cost, -original.Amount)
	incStock(u, updated.PaidByID, updated.ProductID, updated.Cost, updated.Amount)
	return u
}

func incStock(u Update, accountID, productID string, cost, amount int64) {
	u.Inc("totalIn", cost)
	u.Inc(fmt.Sprintf("productData.%s.totalIn", productID), cost)
	u.Inc(fmt.Sprintf("productData.%s.amountIn", productID), amount)
	u.Inc(fmt.Sprintf("balances.%s.totalIn", accountID), cost)
	u.Inc(fmt.Sprintf("balances.%s.products.%s.totalIn", accountID, productID), cost)
	u.Inc(fmt.Sprintf("balances.%s.products.%s.amountIn", accountID, productID), amount)
}
