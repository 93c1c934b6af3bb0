// Package settle implements house settlement: reallocating the remaining
// worth of unconsumed stock over the contributing accounts, netting the
// resulting debts into a minimal transfer plan, and assembling the immutable
// settlement record.
//
// All computations are pure and synchronous. The caller is responsible for
// handing in one consistent house snapshot and applying the returned
// write-set atomically; see the storage package.
package settle

import (
	"github.com/shopspring/decimal"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// AccountBalance is one account's outcome of reallocation.
type AccountBalance struct {
	// OldBalance is totalIn - totalOut before settlement.
	OldBalance int64
	// NewBalance is the account's share of the reallocated product worth.
	// It equals the sum of Products[*].TotalIn exactly.
	NewBalance int64
	// Straighten compensates for valuation drift on the value this
	// account already consumed; it is folded into the settle amount.
	Straighten int64
	// Products holds the account's closed-out per-product figures: the
	// reallocated share of remaining amount and worth, with all
	// consumption reset to zero.
	Products map[string]*models.ProductData
}

// Reallocation is the result of reallocating a whole house. Order preserves
// the house's account order; remainder distribution and netting tie-breaks
// depend on it.
type Reallocation struct {
	Accounts map[string]*AccountBalance
	Order    []string
}

// Reallocate converts every account's recorded contribution and consumption
// into a closing balance, redistributing the current estimated worth of
// unconsumed stock per product.
//
// Flooring the proportional shares leaves an aggregate shortfall; it is
// redistributed one hundredth-unit / one minor-currency-unit at a time,
// cycling over the contributing accounts in house order, so that the sum of
// all new balances equals the sum of the reallocated worth exactly.
//
// Balance data referencing an account or product the house does not list is
// a data-consistency error and fails the settlement attempt.
func Reallocate(h *models.House) (*Reallocation, error) {
	for accountID, bal := range h.Balances {
		if h.AccountByID(accountID) == nil {
			return nil, apperr.New(apperr.CodeNotFound, "balance references unknown account %s", accountID)
		}
		for productID := range bal.Products {
			if h.ProductByID(productID) == nil {
				return nil, apperr.New(apperr.CodeNotFound, "balance references unknown product %s", productID)
			}
		}
	}

	r := &Reallocation{
		Accounts: make(map[string]*AccountBalance, len(h.Accounts)),
		Order:    make([]string, 0, len(h.Accounts)),
	}

	// Ordered contributors per product; share figures are filled in below.
	type contribution struct {
		accountID   string
		newAmountIn int64
		newTotalIn  int64
	}
	contributors := make(map[string][]*contribution, len(h.Products))

	for i := range h.Accounts {
		account := &h.Accounts[i]
		if account.Removed {
			// Former members keep their account entry for history but no
			// longer hold a balance.
			continue
		}
		bal := h.Balances[account.ID]
		if bal == nil {
			return nil, apperr.New(apperr.CodeInternal, "no balance recorded for account %s", account.ID)
		}

		ab := &AccountBalance{
			OldBalance: bal.TotalIn - bal.TotalOut,
			Products:   make(map[string]*models.ProductData),
		}
		r.Accounts[account.ID] = ab
		r.Order = append(r.Order, account.ID)

		// House product order keeps the remainder cycling deterministic.
		for j := range h.Products {
			product := &h.Products[j]
			apd := bal.Products[product.ID]
			if apd == nil {
				continue
			}
			pd := h.ProductData[product.ID]
			if pd == nil {
				return nil, apperr.New(apperr.CodeNotFound, "no product data for product %s", product.ID)
			}
			if pd.AmountIn <= 0 {
				continue
			}

			_, diff := productPool(product, pd)
			ab.Straighten -= floorInt(diff.
				Mul(decimal.NewFromInt(apd.AmountOut)).
				Div(decimal.NewFromInt(pd.AmountIn)))

			if apd.AmountIn > 0 {
				contributors[product.ID] = append(contributors[product.ID],
					&contribution{accountID: account.ID})
			}
		}
	}

	for j := range h.Products {
		product := &h.Products[j]
		list := contributors[product.ID]
		if len(list) == 0 {
			continue
		}
		pd := h.ProductData[product.ID]
		restWorth, _ := productPool(product, pd)
		remainingAmount := pd.AmountIn - pd.AmountOut

		var amountSum, totalSum int64
		for _, c := range list {
			share := h.Balances[c.accountID].Products[product.ID].AmountIn
			c.newAmountIn = floorDiv(share*remainingAmount, pd.AmountIn)
			c.newTotalIn = floorDiv(share*restWorth, pd.AmountIn)
			amountSum += c.newAmountIn
			totalSum += c.newTotalIn
		}

		for i, rem := 0, remainingAmount-amountSum; rem > 0; i, rem = (i+1)%len(list), rem-1 {
			list[i].newAmountIn++
		}
		for i, rem := 0, restWorth-totalSum; rem > 0; i, rem = (i+1)%len(list), rem-1 {
			list[i].newTotalIn++
		}

		for _, c := range list {
			ab := r.Accounts[c.accountID]
			ab.Products[product.ID] = &models.ProductData{
				AmountIn: c.newAmountIn,
				TotalIn:  c.newTotalIn,
			}
			ab.NewBalance += c.newTotalIn
		}
	}

	// Straighten flooring leaves a house-level remainder; cycle it over the
	// accounts so that sum(oldBalance - newBalance + straighten) == 0.
	var settleRemainder int64
	for _, id := range r.Order {
		ab := r.Accounts[id]
		settleRemainder += ab.OldBalance - ab.NewBalance + ab.Straighten
	}
	step := int64(-1)
	if settleRemainder < 0 {
		step = 1
		settleRemainder = -settleRemainder
	}
	for i, rem := 0, settleRemainder; rem > 0; i, rem = (i+1)%len(r.Order), rem-1 {
		r.Accounts[r.Order[i]].Straighten += step
	}

	return r, nil
}

// productPool computes the reallocatable pool for one product.
//
// worth is the book value of remaining physical stock; diff the gap between
// money actually paid in/out and that book value (price drift and rounding
// of partial consumption). The fraction of diff attributable to the
// unconsumed part is re-added to the remaining worth and rounded to a whole
// minor unit: that is restWorth, the pool redistributed over contributors.
func productPool(p *models.Product, pd *models.ProductData) (restWorth int64, diff decimal.Decimal) {
	amountIn := decimal.New(pd.AmountIn, -2)
	amountOut := decimal.New(pd.AmountOut, -2)

	worth := amountIn.Sub(amountOut).Mul(decimal.NewFromInt(p.Price))
	diff = decimal.NewFromInt(pd.TotalIn - pd.TotalOut).Sub(worth)

	unconsumed := decimal.Zero
	if pd.AmountIn != 0 {
		unconsumed = decimal.NewFromInt(1).Sub(amountOut.Div(amountIn))
	}
	restWorth = diff.Mul(unconsumed).Add(worth).Round(0).IntPart()
	return restWorth, diff
}

// floorDiv is floored integer division for positive divisors.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorInt(d decimal.Decimal) int64 {
	return d.Floor().IntPart()
}
