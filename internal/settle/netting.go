package settle

import (
	"sort"

	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// Net turns per-account settle amounts into a transfer plan with at most
// n-1 transfers for n accounts. A positive settle amount means the house
// owes the account; a negative one means the account owes the house.
//
// Debtors and creditors are paired greedily: the largest debtor pays the
// largest creditor until one of them is exhausted. Accounts with equal
// amounts keep their relative order in the given account order, so the plan
// is deterministic for a given house.
//
// The amounts must sum to zero; Reallocate guarantees that for house
// settlements.
func Net(order []string, settle map[string]int64) map[string]*models.SettleItem {
	items := make(map[string]*models.SettleItem, len(order))

	type entry struct {
		accountID string
		settle    int64
	}
	entries := make([]entry, 0, len(order))
	for _, id := range order {
		items[id] = &models.SettleItem{
			Settle:   settle[id],
			Owes:     make(map[string]int64),
			Receives: make(map[string]int64),
		}
		entries = append(entries, entry{accountID: id, settle: settle[id]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].settle < entries[j].settle
	})

	low, high := 0, len(entries)-1
	for low < high && entries[low].settle < 0 {
		debtor, creditor := &entries[low], &entries[high]

		if creditor.settle+debtor.settle < 0 {
			// Creditor is made whole; debtor keeps paying the next one.
			items[creditor.accountID].Receives[debtor.accountID] = creditor.settle
			items[debtor.accountID].Owes[creditor.accountID] = creditor.settle
			debtor.settle += creditor.settle
			high--
			continue
		}

		// Debtor is cleared with a single payment.
		amount := -debtor.settle
		items[creditor.accountID].Receives[debtor.accountID] = amount
		items[debtor.accountID].Owes[creditor.accountID] = amount
		creditor.settle += debtor.settle
		low++
	}

	return items
}
