package settle

import (
	"fmt"
	"time"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/ledger"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// SettleHouse reallocates all balances, nets the settle amounts into a
// transfer plan and returns the house write-set plus the settlement record.
//
// After the update is applied the house totals restart from the reallocated
// worth: totalIn is the sum of the new balances, totalOut is zero, every
// account balance holds only its reallocated product shares and every
// product's data is reduced to its remaining amount and worth. Shared
// account balances are untouched; they are settled separately.
//
// The initiating user must have an account in the house. The caller holds
// the house transaction and is responsible for the settling lock.
func SettleHouse(h *models.House, initiatorUserID string, now time.Time) (ledger.Update, *models.Settlement, error) {
	initiator := h.AccountByUserID(initiatorUserID)
	if initiator == nil {
		return nil, nil, apperr.New(apperr.CodeNotFound, "no account for user %s in house %s", initiatorUserID, h.ID)
	}

	r, err := Reallocate(h)
	if err != nil {
		return nil, nil, err
	}

	u := make(ledger.Update)
	u.Set("isSettling", false)
	u.Set("settledAt", now)
	u.Set("totalOut", int64(0))

	var totalIn int64
	settleAmounts := make(map[string]int64, len(r.Order))
	for _, id := range r.Order {
		ab := r.Accounts[id]
		u.Set(fmt.Sprintf("balances.%s", id), &models.Balance{
			TotalIn:  ab.NewBalance,
			Products: ab.Products,
		})
		totalIn += ab.NewBalance
		settleAmounts[id] = ab.OldBalance + ab.Straighten - ab.NewBalance
	}
	u.Set("totalIn", totalIn)

	for i := range h.Products {
		productID := h.Products[i].ID
		if h.ProductData[productID] == nil {
			continue
		}
		pd := &models.ProductData{}
		for _, id := range r.Order {
			if share := r.Accounts[id].Products[productID]; share != nil {
				pd.AmountIn += share.AmountIn
				pd.TotalIn += share.TotalIn
			}
		}
		u.Set(fmt.Sprintf("productData.%s", productID), pd)
	}

	s := &models.Settlement{
		CreatedAt: now,
		CreatedBy: initiator.ID,
		Type:      models.SettlementTypeHouse,
		Accounts:  snapshotAccounts(h.Accounts),
		Items:     Net(r.Order, settleAmounts),
	}
	return u, s, nil
}

// SettleUserAccount moves the settler's full balance onto the receiver and
// zeroes the settler, recording the moved balance. It is the voluntary
// "pay out one member" flow: the actual money changes hands outside the
// ledger, the receiver absorbs the settler's position.
//
// The settler's account is stamped with a settle timestamp; transactions
// created before it can no longer be edited.
func SettleUserAccount(h *models.House, issuerUserID, settlerID, receiverID string, now time.Time) (ledger.Update, *models.Settlement, error) {
	issuer := h.AccountByUserID(issuerUserID)
	if issuer == nil {
		return nil, nil, apperr.New(apperr.CodeNotFound, "no account for user %s in house %s", issuerUserID, h.ID)
	}
	settler, receiver := h.AccountByID(settlerID), h.AccountByID(receiverID)
	if settler == nil || settler.Type != models.AccountTypeUser {
		return nil, nil, apperr.New(apperr.CodeNotFound, "user account %s not found", settlerID)
	}
	if receiver == nil || receiver.Type != models.AccountTypeUser {
		return nil, nil, apperr.New(apperr.CodeNotFound, "user account %s not found", receiverID)
	}
	if settlerID == receiverID {
		return nil, nil, apperr.New(apperr.CodeFailedPrecondition, "account %s cannot settle onto itself", settlerID)
	}
	bal := h.Balances[settlerID]
	if bal == nil {
		return nil, nil, apperr.New(apperr.CodeInternal, "no balance recorded for account %s", settlerID)
	}

	settledBefore := now
	if settler.SettledAt != nil {
		settledBefore = *settler.SettledAt
	}
	snapshot := bal.Clone()

	u := make(ledger.Update)
	zeroBalance(u, settlerID)
	u.Set("accounts", stampSettled(h.Accounts, settlerID, now))

	u.Inc(fmt.Sprintf("balances.%s.totalIn", receiverID), snapshot.TotalIn)
	u.Inc(fmt.Sprintf("balances.%s.totalOut", receiverID), snapshot.TotalOut)
	for productID, pd := range snapshot.Products {
		u.Inc(fmt.Sprintf("balances.%s.products.%s.amountIn", receiverID, productID), pd.AmountIn)
		u.Inc(fmt.Sprintf("balances.%s.products.%s.amountOut", receiverID, productID), pd.AmountOut)
		u.Inc(fmt.Sprintf("balances.%s.products.%s.totalIn", receiverID, productID), pd.TotalIn)
		u.Inc(fmt.Sprintf("balances.%s.products.%s.totalOut", receiverID, productID), pd.TotalOut)
	}

	s := &models.Settlement{
		CreatedAt:       now,
		CreatedBy:       issuer.ID,
		Type:            models.SettlementTypeUserAccount,
		Accounts:        snapshotAccounts([]models.Account{*issuer, *settler, *receiver}),
		SettledAtBefore: &settledBefore,
		SettlerID:       settlerID,
		ReceiverID:      receiverID,
		BalanceSettled:  snapshot,
	}
	return u, s, nil
}

// SettleSharedAccount reimburses a shared account: its balance is zeroed and
// the given payout is charged as consumption to each debtor account. The
// payout is decided by the caller (typically an even or usage-based split
// chosen in the client); every debtor must exist in the house.
func SettleSharedAccount(h *models.House, issuerUserID, sharedID string, payout map[string]*models.AccountPayout, now time.Time) (ledger.Update, *models.Settlement, error) {
	issuer := h.AccountByUserID(issuerUserID)
	if issuer == nil {
		return nil, nil, apperr.New(apperr.CodeNotFound, "no account for user %s in house %s", issuerUserID, h.ID)
	}
	shared := h.SharedAccountByID(sharedID)
	if shared == nil {
		return nil, nil, apperr.New(apperr.CodeNotFound, "shared account %s not found", sharedID)
	}
	bal := h.Balances[sharedID]
	if bal == nil {
		return nil, nil, apperr.New(apperr.CodeInternal, "no balance recorded for account %s", sharedID)
	}

	settledBefore := now
	if shared.SettledAt != nil {
		settledBefore = *shared.SettledAt
	}
	snapshot := bal.Clone()

	u := make(ledger.Update)
	zeroBalance(u, sharedID)
	u.Set("sharedAccounts", stampSettled(h.SharedAccounts, sharedID, now))

	for accountID, p := range payout {
		if h.AccountByID(accountID) == nil {
			return nil, nil, apperr.New(apperr.CodeNotFound, "account %s not found", accountID)
		}
		u.Inc(fmt.Sprintf("balances.%s.totalOut", accountID), p.TotalOut)
		for productID, pp := range p.Products {
			u.Inc(fmt.Sprintf("balances.%s.products.%s.totalOut", accountID, productID), pp.TotalOut)
			u.Inc(fmt.Sprintf("balances.%s.products.%s.amountOut", accountID, productID), pp.AmountOut)
		}
	}

	snap := snapshotAccounts(h.Accounts)
	snap[shared.ID] = models.AccountSnapshot{Name: shared.Name}

	s := &models.Settlement{
		CreatedAt:       now,
		CreatedBy:       issuer.ID,
		Type:            models.SettlementTypeSharedAccount,
		Accounts:        snap,
		SettledAtBefore: &settledBefore,
		CreditorID:      sharedID,
		Creditor:        snapshot,
		Debtors:         payout,
	}
	return u, s, nil
}

func zeroBalance(u ledger.Update, accountID string) {
	u.Set(fmt.Sprintf("balances.%s.totalIn", accountID), int64(0))
	u.Set(fmt.Sprintf("balances.%s.totalOut", accountID), int64(0))
	u.Set(fmt.Sprintf("balances.%s.products", accountID), map[string]*models.ProductData{})
}

// stampSettled returns a copy of accounts with the given account's settle
// timestamp set to now.
func stampSettled(accounts []models.Account, accountID string, now time.Time) []models.Account {
	out := make([]models.Account, len(accounts))
	copy(out, accounts)
	for i := range out {
		if out[i].ID == accountID {
			t := now
			out[i].SettledAt = &t
		}
	}
	return out
}

func snapshotAccounts(accounts []models.Account) map[string]models.AccountSnapshot {
	snap := make(map[string]models.AccountSnapshot, len(accounts))
	for i := range accounts {
		snap[accounts[i].ID] = models.AccountSnapshot{Name: accounts[i].Name}
	}
	return snap
}
