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

// StockService records purchases of stock: who paid, which product, cost and
// amount. Every mutation is translated into balance increments by the ledger
// package and applied in the same transaction as the record write.
type StockService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewStockService creates a new StockService with the given storage backend.
func NewStockService(store storage.Store, logger *slog.Logger) *StockService {
	return &StockService{store: store, logger: logger}
}

// RegisterRoutes mounts the stock endpoints on an authenticated router.
func (s *StockService) RegisterRoutes(r gin.IRouter) {
	r.GET("/houses/:houseID/stock", s.ListStock)
	r.POST("/houses/:houseID/stock", s.AddStock)
	r.PUT("/houses/:houseID/stock/:stockID", s.EditStock)
}

type stockRequest struct {
	PaidByID  string `json:"paidById" binding:"required"`
	ProductID string `json:"productId" binding:"required"`
	Cost      int64  `json:"cost"`
	Amount    int64  `json:"amount"`
}

func (req *stockRequest) validate(h *models.House) error {
	if h.AccountByID(req.PaidByID) == nil {
		return apperr.New(apperr.CodeNotFound, "account %s not found", req.PaidByID)
	}
	if h.ProductByID(req.ProductID) == nil {
		return apperr.New(apperr.CodeNotFound, "product %s not found", req.ProductID)
	}
	if req.Cost < 0 || req.Amount < 0 {
		return apperr.New(apperr.CodeFailedPrecondition, "cost and amount must not be negative")
	}
	return nil
}

// ListStock returns the house's stock entries, newest first.
func (s *StockService) ListStock(c *gin.Context) {
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

	stocks, err := s.store.ListStock(c.Request.Context(), houseID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if stocks == nil {
		stocks = []*models.Stock{}
	}
	c.JSON(http.StatusOK, gin.H{"stock": stocks})
}

// AddStock records a purchase and credits the payer.
func (s *StockService) AddStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paidById and productId are required"})
		return
	}
	if req.Amount == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	var stock *models.Stock
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}
		if err := req.validate(h); err != nil {
			return err
		}

		stock = &models.Stock{
			CreatedBy: middleware.GetUserID(c),
			PaidByID:  req.PaidByID,
			ProductID: req.ProductID,
			Cost:      req.Cost,
			Amount:    req.Amount,
		}
		if err := tx.PutStock(stock); err != nil {
			return err
		}
		return tx.Apply(ledger.StockAdded(stock))
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("stock added", "house_id", c.Param("houseID"), "stock_id", stock.ID,
		"cost", stock.Cost, "amount", stock.Amount)
	c.JSON(http.StatusCreated, stock)
}

// EditStock changes an existing purchase. The balance state moves by the
// difference between the stored entry and the updated one; changing the
// payer or product moves the full contribution. Amount zero deletes the
// purchase: the entry is marked removed and its contribution withdrawn.
func (s *StockService) EditStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paidById and productId are required"})
		return
	}

	var stock *models.Stock
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}
		if err := req.validate(h); err != nil {
			return err
		}

		original, err := tx.GetStock(c.Param("stockID"))
		if err != nil {
			return err
		}

		stock = &models.Stock{
			ID:        original.ID,
			CreatedAt: original.CreatedAt,
			CreatedBy: original.CreatedBy,
			PaidByID:  req.PaidByID,
			ProductID: req.ProductID,
			Cost:      req.Cost,
			Amount:    req.Amount,
		}
		if stock.Amount == 0 {
			stock.Cost = 0
			stock.Removed = true
		}

		if err := tx.UpdateStock(stock); err != nil {
			return err
		}
		return tx.Apply(ledger.StockEdited(original, stock))
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("stock edited", "house_id", c.Param("houseID"), "stock_id", stock.ID,
		"removed", stock.Removed)
	c.JSON(http.StatusOK, stock)
}
