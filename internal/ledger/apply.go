package ledger

import (
	"strings"
	"time"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// Apply mutates the house snapshot according to u. Increments create missing
// balance or product-data entries at zero, mirroring a document store's
// increment primitive. Unknown paths or type mismatches are internal errors:
// the update was produced against the same snapshot, so they indicate a bug,
// not bad input.
func Apply(h *models.House, u Update) error {
	for path, op := range u {
		if err := applyOp(h, path, op); err != nil {
			return err
		}
	}
	return nil
}

func applyOp(h *models.House, path string, op Op) error {
	parts := strings.Split(path, ".")

	switch parts[0] {
	case "totalIn":
		return applyInt(&h.TotalIn, path, op)
	case "totalOut":
		return applyInt(&h.TotalOut, path, op)
	case "isSettling":
		v, ok := op.Value.(bool)
		if op.Kind != OpSet || !ok {
			return badPath(path)
		}
		h.IsSettling = v
		return nil
	case "settledAt":
		v, ok := op.Value.(time.Time)
		if op.Kind != OpSet || !ok {
			return badPath(path)
		}
		h.SettledAt = &v
		return nil
	case "accounts":
		v, ok := op.Value.([]models.Account)
		if op.Kind != OpSet || !ok {
			return badPath(path)
		}
		h.Accounts = v
		return nil
	case "sharedAccounts":
		v, ok := op.Value.([]models.Account)
		if op.Kind != OpSet || !ok {
			return badPath(path)
		}
		h.SharedAccounts = v
		return nil
	case "balances":
		return applyBalance(h, parts, path, op)
	case "productData":
		return applyProductData(h, parts, path, op)
	}
	return badPath(path)
}

func applyBalance(h *models.House, parts []string, path string, op Op) error {
	if len(parts) < 2 {
		return badPath(path)
	}
	accountID := parts[1]

	if len(parts) == 2 {
		switch op.Kind {
		case OpSet:
			v, ok := op.Value.(*models.Balance)
			if !ok {
				return badPath(path)
			}
			ensureBalances(h)
			h.Balances[accountID] = v
			return nil
		case OpDelete:
			delete(h.Balances, accountID)
			return nil
		}
		return badPath(path)
	}

	ensureBalances(h)
	b := h.Balances[accountID]
	if b == nil {
		b = &models.Balance{}
		h.Balances[accountID] = b
	}

	switch parts[2] {
	case "totalIn":
		if len(parts) != 3 {
			return badPath(path)
		}
		return applyInt(&b.TotalIn, path, op)
	case "totalOut":
		if len(parts) != 3 {
			return badPath(path)
		}
		return applyInt(&b.TotalOut, path, op)
	case "products":
		if len(parts) == 3 {
			v, ok := op.Value.(map[string]*models.ProductData)
			if op.Kind != OpSet || !ok {
				return badPath(path)
			}
			b.Products = v
			return nil
		}
		if len(parts) != 5 {
			return badPath(path)
		}
		if b.Products == nil {
			b.Products = make(map[string]*models.ProductData)
		}
		pd := b.Products[parts[3]]
		if pd == nil {
			pd = &models.ProductData{}
			b.Products[parts[3]] = pd
		}
		return applyProductField(pd, parts[4], path, op)
	}
	return badPath(path)
}

func applyProductData(h *models.House, parts []string, path string, op Op) error {
	if len(parts) < 2 {
		return badPath(path)
	}
	if h.ProductData == nil {
		h.ProductData = make(map[string]*models.ProductData)
	}
	productID := parts[1]

	if len(parts) == 2 {
		switch op.Kind {
		case OpSet:
			v, ok := op.Value.(*models.ProductData)
			if !ok {
				return badPath(path)
			}
			h.ProductData[productID] = v
			return nil
		case OpDelete:
			delete(h.ProductData, productID)
			return nil
		}
		return badPath(path)
	}

	if len(parts) != 3 {
		return badPath(path)
	}
	pd := h.ProductData[productID]
	if pd == nil {
		pd = &models.ProductData{}
		h.ProductData[productID] = pd
	}
	return applyProductField(pd, parts[2], path, op)
}

func applyProductField(pd *models.ProductData, field, path string, op Op) error {
	switch field {
	case "amountIn":
		return applyInt(&pd.AmountIn, path, op)
	case "amountOut":
		return applyInt(&pd.AmountOut, path, op)
	case "totalIn":
		return applyInt(&pd.TotalIn, path, op)
	case "totalOut":
		return applyInt(&pd.TotalOut, path, op)
	}
	return badPath(path)
}

func applyInt(target *int64, path string, op Op) error {
	switch op.Kind {
	case OpInc:
		*target += op.Delta
		return nil
	case OpSet:
		v, ok := op.Value.(int64)
		if !ok {
			return badPath(path)
		}
		*target = v
		return nil
	}
	return badPath(path)
}

func ensureBalances(h *models.House) {
	if h.Balances == nil {
		h.Balances = make(map[string]*models.Balance)
	}
}

func badPath(path string) error {
	return apperr.New(apperr.CodeInternal, "unsupported update operation on field %q", path)
}
