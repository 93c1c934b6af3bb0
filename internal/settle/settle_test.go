package settle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/ledger"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// beerHouse is a three-member house with one product where one member
// bought all stock and everyone consumed. Prices drifted: the 24 units were
// bought for 12.99 while the book price values them at 0.50 apiece, so
// settlement has to straighten the consumed value and reallocate the rest.
func beerHouse() *models.House {
	return &models.House{
		ID:       "house-1",
		Name:     "Baker Street",
		Currency: "EUR",
		Members:  []string{"user-1", "user-2", "user-3"},
		Accounts: []models.Account{
			{ID: "acc-1", Name: "Ada", Type: models.AccountTypeUser, UserID: "user-1"},
			{ID: "acc-2", Name: "Ben", Type: models.AccountTypeUser, UserID: "user-2"},
			{ID: "acc-3", Name: "Cas", Type: models.AccountTypeUser, UserID: "user-3"},
		},
		Products: []models.Product{
			{ID: "prod-1", Name: "Beer", Price: 50},
		},
		TotalIn:  1299,
		TotalOut: 1100,
		ProductData: map[string]*models.ProductData{
			"prod-1": {AmountIn: 2400, AmountOut: 2200, TotalIn: 1299, TotalOut: 1100},
		},
		Balances: map[string]*models.Balance{
			"acc-1": {TotalIn: 1299, TotalOut: 600, Products: map[string]*models.ProductData{
				"prod-1": {AmountIn: 2400, AmountOut: 1200, TotalIn: 1299, TotalOut: 600},
			}},
			"acc-2": {TotalIn: 0, TotalOut: 200, Products: map[string]*models.ProductData{
				"prod-1": {AmountOut: 400, TotalOut: 200},
			}},
			"acc-3": {TotalIn: 0, TotalOut: 300, Products: map[string]*models.ProductData{
				"prod-1": {AmountOut: 600, TotalOut: 300},
			}},
		},
	}
}

func TestReallocate(t *testing.T) {
	h := beerHouse()

	r, err := Reallocate(h)
	require.NoError(t, err)
	require.Equal(t, []string{"acc-1", "acc-2", "acc-3"}, r.Order)

	// Remaining 2 units are worth 1.00 at book price; the 0.99 overpayment
	// is split over consumed and unconsumed stock, leaving 1.08 for the sole
	// contributor.
	a1 := r.Accounts["acc-1"]
	assert.Equal(t, int64(699), a1.OldBalance)
	assert.Equal(t, int64(108), a1.NewBalance)
	assert.Equal(t, int64(-50), a1.Straighten)
	require.NotNil(t, a1.Products["prod-1"])
	assert.Equal(t, int64(200), a1.Products["prod-1"].AmountIn)
	assert.Equal(t, int64(108), a1.Products["prod-1"].TotalIn)

	a2 := r.Accounts["acc-2"]
	assert.Equal(t, int64(-200), a2.OldBalance)
	assert.Equal(t, int64(0), a2.NewBalance)
	assert.Equal(t, int64(-17), a2.Straighten)
	assert.Empty(t, a2.Products)

	a3 := r.Accounts["acc-3"]
	assert.Equal(t, int64(-300), a3.OldBalance)
	assert.Equal(t, int64(0), a3.NewBalance)
	assert.Equal(t, int64(-24), a3.Straighten)

	// The settle amounts must balance to zero exactly.
	var sum int64
	for _, ab := range r.Accounts {
		sum += ab.OldBalance + ab.Straighten - ab.NewBalance
	}
	assert.Zero(t, sum)
}

func TestReallocateExactness(t *testing.T) {
	// Contributions of 0.33/0.33/0.34 for equal thirds of a product cannot
	// be reallocated without a remainder; the leftover cent cycles to the
	// first contributor so the new balances still sum to the pool.
	h := &models.House{
		ID: "house-1",
		Accounts: []models.Account{
			{ID: "acc-1", Type: models.AccountTypeUser, UserID: "user-1"},
			{ID: "acc-2", Type: models.AccountTypeUser, UserID: "user-2"},
			{ID: "acc-3", Type: models.AccountTypeUser, UserID: "user-3"},
		},
		Products: []models.Product{{ID: "prod-1", Price: 100}},
		TotalIn:  100,
		ProductData: map[string]*models.ProductData{
			"prod-1": {AmountIn: 300, TotalIn: 100},
		},
		Balances: map[string]*models.Balance{
			"acc-1": {TotalIn: 33, Products: map[string]*models.ProductData{"prod-1": {AmountIn: 100, TotalIn: 33}}},
			"acc-2": {TotalIn: 33, Products: map[string]*models.ProductData{"prod-1": {AmountIn: 100, TotalIn: 33}}},
			"acc-3": {TotalIn: 34, Products: map[string]*models.ProductData{"prod-1": {AmountIn: 100, TotalIn: 34}}},
		},
	}

	r, err := Reallocate(h)
	require.NoError(t, err)

	assert.Equal(t, int64(34), r.Accounts["acc-1"].NewBalance)
	assert.Equal(t, int64(33), r.Accounts["acc-2"].NewBalance)
	assert.Equal(t, int64(33), r.Accounts["acc-3"].NewBalance)
	assert.Equal(t, int64(100), r.Accounts["acc-1"].Products["prod-1"].AmountIn)

	settles := make(map[string]int64)
	for id, ab := range r.Accounts {
		settles[id] = ab.OldBalance + ab.Straighten - ab.NewBalance
	}
	assert.Equal(t, map[string]int64{"acc-1": -1, "acc-2": 0, "acc-3": 1}, settles)
}

func TestReallocateSkipsRemovedAccounts(t *testing.T) {
	h := beerHouse()
	h.Accounts = append(h.Accounts, models.Account{ID: "acc-4", Name: "Dex", Removed: true})

	r, err := Reallocate(h)
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1", "acc-2", "acc-3"}, r.Order)
	assert.NotContains(t, r.Accounts, "acc-4")
}

func TestReallocateUnknownAccount(t *testing.T) {
	h := beerHouse()
	h.Balances["ghost"] = &models.Balance{TotalIn: 1}

	_, err := Reallocate(h)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestReallocateUnknownProduct(t *testing.T) {
	h := beerHouse()
	h.Balances["acc-1"].Products["ghost"] = &models.ProductData{AmountIn: 1}

	_, err := Reallocate(h)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestNet(t *testing.T) {
	tests := []struct {
		name      string
		order     []string
		settle    map[string]int64
		transfers map[string]map[string]int64 // debtor -> creditor -> amount
	}{
		{
			name:   "single creditor",
			order:  []string{"a", "b", "c"},
			settle: map[string]int64{"a": 541, "b": -217, "c": -324},
			transfers: map[string]map[string]int64{
				"b": {"a": 217},
				"c": {"a": 324},
			},
		},
		{
			name:   "single debtor pays two creditors",
			order:  []string{"a", "b", "c"},
			settle: map[string]int64{"a": -500, "b": 300, "c": 200},
			transfers: map[string]map[string]int64{
				"a": {"b": 300, "c": 200},
			},
		},
		{
			name:      "all even",
			order:     []string{"a", "b"},
			settle:    map[string]int64{"a": 0, "b": 0},
			transfers: map[string]map[string]int64{},
		},
		{
			name:   "chain",
			order:  []string{"a", "b", "c", "d"},
			settle: map[string]int64{"a": -10, "b": -20, "c": 5, "d": 25},
			transfers: map[string]map[string]int64{
				"b": {"d": 20},
				"a": {"d": 5, "c": 5},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items := Net(tc.order, tc.settle)
			require.Len(t, items, len(tc.order))

			transfers := 0
			for id, item := range items {
				assert.Equal(t, tc.settle[id], item.Settle)
				for creditor, amount := range item.Owes {
					assert.Equal(t, tc.transfers[id][creditor], amount, "owes %s -> %s", id, creditor)
					assert.Equal(t, amount, items[creditor].Receives[id], "receives mirror %s -> %s", id, creditor)
					transfers++
				}
			}
			want := 0
			for _, m := range tc.transfers {
				want += len(m)
			}
			assert.Equal(t, want, transfers)
			assert.LessOrEqual(t, transfers, len(tc.order)-1)
		})
	}
}

func TestSettleHouse(t *testing.T) {
	h := beerHouse()
	h.IsSettling = true
	now := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

	u, s, err := SettleHouse(h, "user-1", now)
	require.NoError(t, err)
	require.NoError(t, ledger.Apply(h, u))

	// House restarts from the reallocated worth.
	assert.False(t, h.IsSettling)
	require.NotNil(t, h.SettledAt)
	assert.True(t, h.SettledAt.Equal(now))
	assert.Equal(t, int64(108), h.TotalIn)
	assert.Zero(t, h.TotalOut)

	require.NotNil(t, h.Balances["acc-1"])
	assert.Equal(t, int64(108), h.Balances["acc-1"].TotalIn)
	assert.Zero(t, h.Balances["acc-1"].TotalOut)
	assert.Equal(t, int64(200), h.Balances["acc-1"].Products["prod-1"].AmountIn)
	assert.Zero(t, h.Balances["acc-2"].TotalIn)
	assert.Empty(t, h.Balances["acc-2"].Products)

	pd := h.ProductData["prod-1"]
	require.NotNil(t, pd)
	assert.Equal(t, &models.ProductData{AmountIn: 200, TotalIn: 108}, pd)

	// Record carries the transfer plan.
	assert.Equal(t, models.SettlementTypeHouse, s.Type)
	assert.Equal(t, "acc-1", s.CreatedBy)
	assert.Equal(t, "Ada", s.Accounts["acc-1"].Name)
	require.NotNil(t, s.Items["acc-1"])
	assert.Equal(t, int64(541), s.Items["acc-1"].Settle)
	assert.Equal(t, int64(-217), s.Items["acc-2"].Settle)
	assert.Equal(t, int64(-324), s.Items["acc-3"].Settle)
	assert.Equal(t, map[string]int64{"acc-2": 217, "acc-3": 324}, s.Items["acc-1"].Receives)
	assert.Equal(t, map[string]int64{"acc-1": 217}, s.Items["acc-2"].Owes)
	assert.Equal(t, map[string]int64{"acc-1": 324}, s.Items["acc-3"].Owes)
}

func TestSettleHouseUnknownInitiator(t *testing.T) {
	h := beerHouse()

	_, _, err := SettleHouse(h, "stranger", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestSettleUserAccount(t *testing.T) {
	h := beerHouse()
	now := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)

	u, s, err := SettleUserAccount(h, "user-1", "acc-2", "acc-1", now)
	require.NoError(t, err)
	require.NoError(t, ledger.Apply(h, u))

	// Settler is zeroed, receiver absorbed the position.
	assert.Zero(t, h.Balances["acc-2"].TotalIn)
	assert.Zero(t, h.Balances["acc-2"].TotalOut)
	assert.Empty(t, h.Balances["acc-2"].Products)
	assert.Equal(t, int64(1299), h.Balances["acc-1"].TotalIn)
	assert.Equal(t, int64(800), h.Balances["acc-1"].TotalOut)
	assert.Equal(t, int64(1600), h.Balances["acc-1"].Products["prod-1"].AmountOut)
	assert.Equal(t, int64(800), h.Balances["acc-1"].Products["prod-1"].TotalOut)

	settler := h.AccountByID("acc-2")
	require.NotNil(t, settler.SettledAt)
	assert.True(t, settler.SettledAt.Equal(now))

	assert.Equal(t, models.SettlementTypeUserAccount, s.Type)
	assert.Equal(t, "acc-2", s.SettlerID)
	assert.Equal(t, "acc-1", s.ReceiverID)
	require.NotNil(t, s.BalanceSettled)
	assert.Equal(t, int64(200), s.BalanceSettled.TotalOut)
}

func TestSettleUserAccountSelf(t *testing.T) {
	h := beerHouse()

	_, _, err := SettleUserAccount(h, "user-1", "acc-1", "acc-1", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
}

func TestSettleSharedAccount(t *testing.T) {
	h := beerHouse()
	h.SharedAccounts = []models.Account{
		{ID: "shared-1", Name: "Fridge", Type: models.AccountTypeShared},
	}
	h.Balances["shared-1"] = &models.Balance{
		TotalOut: 90,
		Products: map[string]*models.ProductData{
			"prod-1": {AmountOut: 180, TotalOut: 90},
		},
	}
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

	payout := map[string]*models.AccountPayout{
		"acc-1": {TotalOut: 45, Products: map[string]*models.PayoutProduct{
			"prod-1": {TotalOut: 45, AmountOut: 90},
		}},
		"acc-2": {TotalOut: 45, Products: map[string]*models.PayoutProduct{
			"prod-1": {TotalOut: 45, AmountOut: 90},
		}},
	}

	u, s, err := SettleSharedAccount(h, "user-1", "shared-1", payout, now)
	require.NoError(t, err)
	require.NoError(t, ledger.Apply(h, u))

	assert.Zero(t, h.Balances["shared-1"].TotalOut)
	assert.Empty(t, h.Balances["shared-1"].Products)
	assert.Equal(t, int64(645), h.Balances["acc-1"].TotalOut)
	assert.Equal(t, int64(1290), h.Balances["acc-1"].Products["prod-1"].AmountOut)
	assert.Equal(t, int64(245), h.Balances["acc-2"].TotalOut)

	shared := h.SharedAccountByID("shared-1")
	require.NotNil(t, shared.SettledAt)
	assert.True(t, shared.SettledAt.Equal(now))

	assert.Equal(t, models.SettlementTypeSharedAccount, s.Type)
	assert.Equal(t, "shared-1", s.CreditorID)
	require.NotNil(t, s.Creditor)
	assert.Equal(t, int64(90), s.Creditor.TotalOut)
	assert.Equal(t, payout, s.Debtors)
	assert.Equal(t, "Fridge", s.Accounts["shared-1"].Name)
}

func TestSettleSharedAccountUnknownDebtor(t *testing.T) {
	h := beerHouse()
	h.SharedAccounts = []models.Account{{ID: "shared-1", Type: models.AccountTypeShared}}
	h.Balances["shared-1"] = &models.Balance{}

	_, _, err := SettleSharedAccount(h, "user-1", "shared-1",
		map[string]*models.AccountPayout{"ghost": {TotalOut: 1}}, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}
