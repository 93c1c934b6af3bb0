package service

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/middleware"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
	"github.com/MarnickvdA/streepn-serverless/internal/settle"
	"github.com/MarnickvdA/streepn-serverless/internal/storage"
)

// SettlementService runs the three settlement flavors and serves the
// settlement history. The whole computation — snapshot read, reallocation,
// record write and balance reset — happens inside one house transaction, so
// concurrent stock or consumption writes either land fully before the
// snapshot or fully after the reset.
type SettlementService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewSettlementService creates a new SettlementService with the given
// storage backend.
func NewSettlementService(store storage.Store, logger *slog.Logger) *SettlementService {
	return &SettlementService{store: store, logger: logger}
}

// RegisterRoutes mounts the settlement endpoints on an authenticated router.
func (s *SettlementService) RegisterRoutes(r gin.IRouter) {
	r.GET("/houses/:houseID/settlements", s.ListSettlements)
	r.POST("/houses/:houseID/settle", s.SettleHouse)
	r.POST("/houses/:houseID/settle/account", s.SettleUserAccount)
	r.POST("/houses/:houseID/settle/shared-account", s.SettleSharedAccount)
}

// ListSettlements returns the house's settlement records, newest first.
func (s *SettlementService) ListSettlements(c *gin.Context) {
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

	settlements, err := s.store.ListSettlements(c.Request.Context(), houseID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if settlements == nil {
		settlements = []*models.Settlement{}
	}
	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}

// SettleHouse reallocates all balances and responds with the settlement
// record carrying the transfer plan.
func (s *SettlementService) SettleHouse(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var record *models.Settlement
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, userID); err != nil {
			return err
		}
		if h.IsSettling {
			return apperr.New(apperr.CodeFailedPrecondition, "a settlement is already in progress")
		}

		u, settlement, err := settle.SettleHouse(h, userID, time.Now())
		if err != nil {
			return err
		}
		if err := tx.PutSettlement(settlement); err != nil {
			return err
		}
		if err := tx.Apply(u); err != nil {
			return err
		}
		record = settlement
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("house settled", "house_id", c.Param("houseID"),
		"settlement_id", record.ID, "user_id", userID)
	c.JSON(http.StatusCreated, record)
}

type settleUserAccountRequest struct {
	SettlerAccountID  string `json:"settlerAccountId" binding:"required"`
	ReceiverAccountID string `json:"receiverAccountId" binding:"required"`
}

// SettleUserAccount pays out one member: the settler's balance moves to the
// receiver and the settler starts from zero.
func (s *SettlementService) SettleUserAccount(c *gin.Context) {
	var req settleUserAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "settlerAccountId and receiverAccountId are required"})
		return
	}
	userID := middleware.GetUserID(c)

	var record *models.Settlement
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, userID); err != nil {
			return err
		}

		u, settlement, err := settle.SettleUserAccount(h, userID,
			req.SettlerAccountID, req.ReceiverAccountID, time.Now())
		if err != nil {
			return err
		}
		if err := tx.PutSettlement(settlement); err != nil {
			return err
		}
		if err := tx.Apply(u); err != nil {
			return err
		}
		record = settlement
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("user account settled", "house_id", c.Param("houseID"),
		"settlement_id", record.ID, "settler", req.SettlerAccountID)
	c.JSON(http.StatusCreated, record)
}

type settleSharedAccountRequest struct {
	SharedAccountID string                           `json:"sharedAccountId" binding:"required"`
	Debtors         map[string]*models.AccountPayout `json:"debtors" binding:"required"`
}

// SettleSharedAccount reimburses a shared account by charging the given
// payout to each debtor.
func (s *SettlementService) SettleSharedAccount(c *gin.Context) {
	var req settleSharedAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Debtors) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sharedAccountId and debtors are required"})
		return
	}
	userID := middleware.GetUserID(c)

	var record *models.Settlement
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, userID); err != nil {
			return err
		}

		u, settlement, err := settle.SettleSharedAccount(h, userID,
			req.SharedAccountID, req.Debtors, time.Now())
		if err != nil {
			return err
		}
		if err := tx.PutSettlement(settlement); err != nil {
			return err
		}
		if err := tx.Apply(u); err != nil {
			return err
		}
		record = settlement
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("shared account settled", "house_id", c.Param("houseID"),
		"settlement_id", record.ID, "shared_account", req.SharedAccountID)
	c.JSON(http.StatusCreated, record)
}
