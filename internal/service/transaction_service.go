package service

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/ledger"
	"github.com/MarnickvdA/streepn-serverless/internal/middleware"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
	"github.com/MarnickvdA/streepn-serverless/internal/storage"
)

// TransactionService records consumption: who drank or ate what. Items carry
// the product price they were booked at, so later price changes never move
// recorded history.
type TransactionService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewTransactionService creates a new TransactionService with the given
// storage backend.
func NewTransactionService(store storage.Store, logger *slog.Logger) *TransactionService {
	return &TransactionService{store: store, logger: logger}
}

// RegisterRoutes mounts the transaction endpoints on an authenticated router.
func (s *TransactionService) RegisterRoutes(r gin.IRouter) {
	r.GET("/houses/:houseID/transactions", s.ListTransactions)
	r.POST("/houses/:houseID/transactions", s.AddTransaction)
	r.PUT("/houses/:houseID/transactions/:transactionID", s.EditTransaction)
}

type transactionItemRequest struct {
	AccountID string `json:"accountId" binding:"required"`
	ProductID string `json:"productId" binding:"required"`
	Amount    int64  `json:"amount"`
}

type transactionRequest struct {
	Items []transactionItemRequest `json:"items" binding:"required"`
}

// ListTransactions returns the house's transactions, newest first.
func (s *TransactionService) ListTransactions(c *gin.Context) {
	houseID := c.Param("houseID")
	house, err := s.store.GetHouse(c.Request.Context(), houseID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if _, err := memberAccount(house, middleware.GetUserID(c)); err != nil {
		respondErr(c, err)
		return
	}

	transactions, err := s.store.ListTransactions(c.Request.Context(), houseID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if transactions == nil {
		transactions = []*models.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// AddTransaction records a new consumption. Each item is priced at the
// product's current price.
func (s *TransactionService) AddTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one item is required"})
		return
	}

	var transaction *models.Transaction
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}

		items := make([]models.TransactionItem, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Amount <= 0 {
				return apperr.New(apperr.CodeFailedPrecondition, "item amounts must be positive")
			}
			product := h.ProductByID(item.ProductID)
			if product == nil {
				return apperr.New(apperr.CodeNotFound, "product %s not found", item.ProductID)
			}
			items = append(items, models.TransactionItem{
				AccountID:    item.AccountID,
				ProductID:    item.ProductID,
				Amount:       item.Amount,
				ProductPrice: product.Price,
			})
		}

		transaction = &models.Transaction{
			CreatedBy: middleware.GetUserID(c),
			Items:     items,
		}
		u, err := ledger.TransactionAdded(h, transaction)
		if err != nil {
			return err
		}
		if err := tx.PutTransaction(transaction); err != nil {
			return err
		}
		return tx.Apply(u)
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("transaction added", "house_id", c.Param("houseID"),
		"transaction_id", transaction.ID, "items", len(transaction.Items))
	c.JSON(http.StatusCreated, transaction)
}

// EditTransaction changes a recorded consumption. Items are matched by
// position against the stored transaction and keep the price they were
// booked at; added items are priced at the current product price. An item
// reduced to amount zero is dropped, and a transaction left without items
// is marked removed. Edits touching an account settled after the
// transaction was created are rejected.
func (s *TransactionService) EditTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items are required"})
		return
	}

	var transaction *models.Transaction
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}

		stored, err := tx.GetTransaction(c.Param("transactionID"))
		if err != nil {
			return err
		}

		items := make([]models.TransactionItem, 0, len(req.Items))
		for i, item := range req.Items {
			if item.Amount < 0 {
				return apperr.New(apperr.CodeFailedPrecondition, "item amounts must not be negative")
			}
			price, err := itemPrice(h, stored, i, item)
			if err != nil {
				return err
			}
			items = append(items, models.TransactionItem{
				AccountID:    item.AccountID,
				ProductID:    item.ProductID,
				Amount:       item.Amount,
				ProductPrice: price,
			})
		}

		updated := &models.Transaction{
			ID:        stored.ID,
			CreatedAt: stored.CreatedAt,
			CreatedBy: stored.CreatedBy,
			Items:     items,
		}
		u, kept, err := ledger.TransactionEdited(h, stored, updated)
		if err != nil {
			return err
		}

		transaction = updated
		transaction.Items = kept
		transaction.Removed = len(kept) == 0
		if err := tx.UpdateTransaction(transaction); err != nil {
			return err
		}
		return tx.Apply(u)
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("transaction edited", "house_id", c.Param("houseID"),
		"transaction_id", transaction.ID, "removed", transaction.Removed)
	c.JSON(http.StatusOK, transaction)
}

// itemPrice keeps the stored booking price for positionally matched items
// and prices additions at the current product price.
func itemPrice(h *models.House, stored *models.Transaction, i int, item transactionItemRequest) (int64, error) {
	if i < len(stored.Items) {
		return stored.Items[i].ProductPrice, nil
	}
	product := h.ProductByID(item.ProductID)
	if product == nil {
		return 0, apperr.New(apperr.CodeNotFound, "product %s not found", item.ProductID)
	}
	return product.Price, nil
}
