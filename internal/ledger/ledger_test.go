package ledger

import (
	"testing"
	"time"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

func TestItemValue(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		price  int64
		want   int64
	}{
		{"whole units", 300, 50, 150},
		{"quarter unit", 25, 100, 25},
		{"below half rounds down", 33, 1, 0},
		{"above half rounds up", 67, 1, 1},
		{"half rounds away from zero", 50, 1, 1},
		{"negative half rounds away from zero", -50, 1, -1},
		{"negative amount", -300, 50, -150},
		{"zero", 0, 50, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ItemValue(tc.amount, tc.price); got != tc.want {
				t.Errorf("ItemValue(%d, %d) = %d, want %d", tc.amount, tc.price, got, tc.want)
			}
		})
	}
}

func TestUpdateIncAccumulates(t *testing.T) {
	u := make(Update)
	u.Inc("totalIn", 100)
	u.Inc("totalIn", -30)

	op := u["totalIn"]
	if op.Kind != OpInc || op.Delta != 70 {
		t.Fatalf("got %+v, want accumulated increment of 70", op)
	}
}

func TestUpdateMerge(t *testing.T) {
	u := make(Update)
	u.Inc("totalIn", 10)
	other := make(Update)
	other.Inc("totalIn", 5)
	other.Set("isSettling", true)

	u.Merge(other)

	if op := u["totalIn"]; op.Delta != 15 {
		t.Errorf("totalIn delta = %d, want 15", op.Delta)
	}
	if op := u["isSettling"]; op.Kind != OpSet {
		t.Errorf("isSettling kind = %v, want set", op.Kind)
	}
}

func TestStockAdded(t *testing.T) {
	u := StockAdded(&models.Stock{
		PaidByID:  "acc-1",
		ProductID: "prod-1",
		Cost:      1299,
		Amount:    2400,
	})

	h := &models.House{}
	if err := Apply(h, u); err != nil {
		t.Fatal(err)
	}

	if h.TotalIn != 1299 {
		t.Errorf("totalIn = %d, want 1299", h.TotalIn)
	}
	pd := h.ProductData["prod-1"]
	if pd == nil || pd.TotalIn != 1299 || pd.AmountIn != 2400 {
		t.Errorf("product data = %+v, want totalIn 1299 amountIn 2400", pd)
	}
	b := h.Balances["acc-1"]
	if b == nil || b.TotalIn != 1299 {
		t.Fatalf("balance = %+v, want totalIn 1299", b)
	}
	bp := b.Products["prod-1"]
	if bp == nil || bp.TotalIn != 1299 || bp.AmountIn != 2400 {
		t.Errorf("balance product = %+v, want totalIn 1299 amountIn 2400", bp)
	}
}

func TestStockEdited(t *testing.T) {
	base := models.Stock{PaidByID: "acc-1", ProductID: "prod-1", Cost: 1000, Amount: 2400}

	tests := []struct {
		name    string
		updated models.Stock
		check   func(t *testing.T, h *models.House)
	}{
		{
			name:    "cost and amount change",
			updated: models.Stock{PaidByID: "acc-1", ProductID: "prod-1", Cost: 1299, Amount: 2000},
			check: func(t *testing.T, h *models.House) {
				if h.TotalIn != 1299 {
					t.Errorf("totalIn = %d, want 1299", h.TotalIn)
				}
				pd := h.ProductData["prod-1"]
				if pd.AmountIn != 2000 {
					t.Errorf("amountIn = %d, want 2000", pd.AmountIn)
				}
			},
		},
		{
			name:    "unchanged entry is a no-op",
			updated: base,
			check: func(t *testing.T, h *models.House) {
				if h.TotalIn != 1000 {
					t.Errorf("totalIn = %d, want 1000", h.TotalIn)
				}
				if pd := h.ProductData["prod-1"]; pd.AmountIn != 2400 {
					t.Errorf("amountIn = %d, want 2400", pd.AmountIn)
				}
			},
		},
		{
			name:    "payer change moves the full contribution",
			updated: models.Stock{PaidByID: "acc-2", ProductID: "prod-1", Cost: 1000, Amount: 2400},
			check: func(t *testing.T, h *models.House) {
				if b := h.Balances["acc-1"]; b.TotalIn != 0 || b.Products["prod-1"].AmountIn != 0 {
					t.Errorf("old payer balance = %+v, want zeroed", b)
				}
				if b := h.Balances["acc-2"]; b.TotalIn != 1000 || b.Products["prod-1"].AmountIn != 2400 {
					t.Errorf("new payer balance = %+v, want full contribution", b)
				}
				if h.TotalIn != 1000 {
					t.Errorf("totalIn = %d, want 1000", h.TotalIn)
				}
			},
		},
		{
			name:    "product change moves the product data",
			updated: models.Stock{PaidByID: "acc-1", ProductID: "prod-2", Cost: 900, Amount: 1200},
			check: func(t *testing.T, h *models.House) {
				if pd := h.ProductData["prod-1"]; pd.TotalIn != 0 || pd.AmountIn != 0 {
					t.Errorf("old product data = %+v, want zeroed", pd)
				}
				if pd := h.ProductData["prod-2"]; pd.TotalIn != 900 || pd.AmountIn != 1200 {
					t.Errorf("new product data = %+v, want 900/1200", pd)
				}
				if h.TotalIn != 900 {
					t.Errorf("totalIn = %d, want 900", h.TotalIn)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := &models.House{}
			if err := Apply(h, StockAdded(&base)); err != nil {
				t.Fatal(err)
			}
			if err := Apply(h, StockEdited(&base, &tc.updated)); err != nil {
				t.Fatal(err)
			}
			tc.check(t, h)
		})
	}
}

func testHouse() *models.House {
	return &models.House{
		ID: "house-1",
		Accounts: []models.Account{
			{ID: "acc-1", Type: models.AccountTypeUser, UserID: "user-1"},
			{ID: "acc-2", Type: models.AccountTypeUser, UserID: "user-2"},
		},
		Products: []models.Product{{ID: "prod-1", Price: 50}},
	}
}

func TestTransactionAdded(t *testing.T) {
	h := testHouse()
	tx := &models.Transaction{
		Items: []models.TransactionItem{
			{AccountID: "acc-1", ProductID: "prod-1", Amount: 300, ProductPrice: 50},
			{AccountID: "acc-2", ProductID: "prod-1", Amount: 100, ProductPrice: 50},
		},
	}

	u, err := TransactionAdded(h, tx)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(h, u); err != nil {
		t.Fatal(err)
	}

	if h.TotalOut != 200 {
		t.Errorf("totalOut = %d, want 200", h.TotalOut)
	}
	if pd := h.ProductData["prod-1"]; pd.AmountOut != 400 || pd.TotalOut != 200 {
		t.Errorf("product data = %+v, want amountOut 400 totalOut 200", pd)
	}
	if b := h.Balances["acc-1"]; b.TotalOut != 150 || b.Products["prod-1"].AmountOut != 300 {
		t.Errorf("acc-1 balance = %+v, want totalOut 150 amountOut 300", b)
	}
	if b := h.Balances["acc-2"]; b.TotalOut != 50 {
		t.Errorf("acc-2 totalOut = %d, want 50", b.TotalOut)
	}
}

func TestTransactionAddedUnknownAccount(t *testing.T) {
	h := testHouse()
	_, err := TransactionAdded(h, &models.Transaction{
		Items: []models.TransactionItem{{AccountID: "ghost", ProductID: "prod-1", Amount: 100, ProductPrice: 50}},
	})
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestTransactionEdited(t *testing.T) {
	h := testHouse()
	stored := &models.Transaction{
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.TransactionItem{
			{AccountID: "acc-1", ProductID: "prod-1", Amount: 300, ProductPrice: 50},
			{AccountID: "acc-2", ProductID: "prod-1", Amount: 100, ProductPrice: 50},
		},
	}
	added, err := TransactionAdded(h, stored)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(h, added); err != nil {
		t.Fatal(err)
	}

	updated := &models.Transaction{
		CreatedAt: stored.CreatedAt,
		Items: []models.TransactionItem{
			{AccountID: "acc-1", ProductID: "prod-1", Amount: 200, ProductPrice: 50},
			{AccountID: "acc-2", ProductID: "prod-1", Amount: 0, ProductPrice: 50},
		},
	}
	u, kept, err := TransactionEdited(h, stored, updated)
	if err != nil {
		t.Fatal(err)
	}
	if err := Apply(h, u); err != nil {
		t.Fatal(err)
	}

	if len(kept) != 1 || kept[0].AccountID != "acc-1" || kept[0].Amount != 200 {
		t.Errorf("kept items = %+v, want only acc-1 with amount 200", kept)
	}
	if h.TotalOut != 100 {
		t.Errorf("totalOut = %d, want 100", h.TotalOut)
	}
	if pd := h.ProductData["prod-1"]; pd.AmountOut != 200 || pd.TotalOut != 100 {
		t.Errorf("product data = %+v, want amountOut 200 totalOut 100", pd)
	}
	if b := h.Balances["acc-2"]; b.TotalOut != 0 || b.Products["prod-1"].AmountOut != 0 {
		t.Errorf("acc-2 balance = %+v, want zeroed", b)
	}
}

func TestTransactionEditedIdenticalIsNoOp(t *testing.T) {
	h := testHouse()
	stored := &models.Transaction{
		Items: []models.TransactionItem{{AccountID: "acc-1", ProductID: "prod-1", Amount: 300, ProductPrice: 50}},
	}

	u, kept, err := TransactionEdited(h, stored, stored)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 {
		t.Fatalf("kept = %+v, want the original item", kept)
	}
	before := *h
	if err := Apply(h, u); err != nil {
		t.Fatal(err)
	}
	if h.TotalOut != before.TotalOut {
		t.Errorf("totalOut changed by identical edit: %d", h.TotalOut)
	}
}

func TestTransactionEditedGuards(t *testing.T) {
	settled := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	h := testHouse()
	h.Accounts[1].SettledAt = &settled

	stored := &models.Transaction{
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Items: []models.TransactionItem{
			{AccountID: "acc-1", ProductID: "prod-1", Amount: 300, ProductPrice: 50},
			{AccountID: "acc-2", ProductID: "prod-1", Amount: 100, ProductPrice: 50},
		},
	}

	t.Run("settled account", func(t *testing.T) {
		_, _, err := TransactionEdited(h, stored, stored)
		if apperr.CodeOf(err) != apperr.CodeFailedPrecondition {
			t.Fatalf("err = %v, want failed-precondition", err)
		}
	})

	t.Run("fewer items than stored", func(t *testing.T) {
		updated := &models.Transaction{Items: stored.Items[:1]}
		_, _, err := TransactionEdited(h, stored, updated)
		if apperr.CodeOf(err) != apperr.CodeFailedPrecondition {
			t.Fatalf("err = %v, want failed-precondition", err)
		}
	})

	t.Run("settled before creation is fine", func(t *testing.T) {
		early := stored.CreatedAt.Add(-time.Hour)
		h2 := testHouse()
		h2.Accounts[1].SettledAt = &early
		if _, _, err := TransactionEdited(h2, stored, stored); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestApplyPaths(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("set and delete", func(t *testing.T) {
		h := &models.House{
			Balances:    map[string]*models.Balance{"acc-1": {TotalIn: 5}},
			ProductData: map[string]*models.ProductData{"prod-1": {TotalIn: 5}},
		}
		u := make(Update)
		u.Set("isSettling", true)
		u.Set("settledAt", now)
		u.Set("totalIn", int64(42))
		u.Delete("balances.acc-1")
		u.Delete("productData.prod-1")

		if err := Apply(h, u); err != nil {
			t.Fatal(err)
		}
		if !h.IsSettling || h.SettledAt == nil || !h.SettledAt.Equal(now) || h.TotalIn != 42 {
			t.Errorf("house = %+v, want isSettling/settledAt/totalIn applied", h)
		}
		if _, ok := h.Balances["acc-1"]; ok {
			t.Error("balance not deleted")
		}
		if _, ok := h.ProductData["prod-1"]; ok {
			t.Error("product data not deleted")
		}
	})

	t.Run("increment creates missing parents", func(t *testing.T) {
		h := &models.House{}
		u := make(Update)
		u.Inc("balances.acc-1.products.prod-1.amountOut", 100)

		if err := Apply(h, u); err != nil {
			t.Fatal(err)
		}
		if h.Balances["acc-1"].Products["prod-1"].AmountOut != 100 {
			t.Errorf("nested increment not applied: %+v", h.Balances)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		h := &models.House{}
		u := make(Update)
		u.Inc("nonsense.field", 1)

		err := Apply(h, u)
		if apperr.CodeOf(err) != apperr.CodeInternal {
			t.Fatalf("err = %v, want internal", err)
		}
	})
}
