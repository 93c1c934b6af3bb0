package service

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/middleware"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
	"github.com/MarnickvdA/streepn-serverless/internal/storage"
)

// inviteCodeTTL is how long a house invite code stays joinable.
const inviteCodeTTL = 72 * time.Hour

// HouseService handles house lifecycle, membership, products and shared
// accounts.
type HouseService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewHouseService creates a new HouseService with the given storage backend.
func NewHouseService(store storage.Store, logger *slog.Logger) *HouseService {
	return &HouseService{store: store, logger: logger}
}

// RegisterRoutes mounts the house endpoints on an authenticated router.
func (s *HouseService) RegisterRoutes(r gin.IRouter) {
	r.POST("/houses", s.CreateHouse)
	r.GET("/houses", s.ListHouses)
	r.GET("/houses/:houseID", s.GetHouse)
	r.POST("/houses/join", s.JoinHouse)
	r.POST("/houses/:houseID/leave", s.LeaveHouse)
	r.POST("/houses/:houseID/invite", s.RenewInviteCode)
	r.POST("/houses/:houseID/products", s.AddProduct)
	r.PUT("/houses/:houseID/products/:productID", s.EditProduct)
	r.POST("/houses/:houseID/shared-accounts", s.AddSharedAccount)
	r.DELETE("/houses/:houseID/shared-accounts/:accountID", s.RemoveSharedAccount)
}

type createHouseRequest struct {
	Name     string `json:"name" binding:"required"`
	Currency string `json:"currency" binding:"required"`
}

// CreateHouse creates a house with the caller as its first, admin account.
func (s *HouseService) CreateHouse(c *gin.Context) {
	var req createHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and currency are required"})
		return
	}
	userID := middleware.GetUserID(c)

	user, err := s.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if user == nil {
		respondErr(c, apperr.New(apperr.CodeUnauthenticated, "user no longer exists"))
		return
	}

	now := time.Now()
	accountID := uuid.New().String()
	house := &models.House{
		CreatedAt:        now,
		Name:             req.Name,
		Currency:         req.Currency,
		InviteCode:       newInviteCode(),
		InviteCodeExpiry: now.Add(inviteCodeTTL),
		Members:          []string{userID},
		Accounts: []models.Account{{
			ID:        accountID,
			CreatedAt: now,
			Name:      user.DisplayName,
			Type:      models.AccountTypeUser,
			UserID:    userID,
			Roles:     []string{models.RoleAdmin},
		}},
		ProductData: map[string]*models.ProductData{},
		Balances:    map[string]*models.Balance{accountID: {}},
	}

	if err := s.store.CreateHouse(c.Request.Context(), house); err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("house created", "house_id", house.ID, "user_id", userID)
	c.JSON(http.StatusCreated, house)
}

// ListHouses returns all houses the caller is a member of.
func (s *HouseService) ListHouses(c *gin.Context) {
	houses, err := s.store.ListHousesByUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	if houses == nil {
		houses = []*models.House{}
	}
	c.JSON(http.StatusOK, gin.H{"houses": houses})
}

// GetHouse returns one house; members only.
func (s *HouseService) GetHouse(c *gin.Context) {
	house, err := s.store.GetHouse(c.Request.Context(), c.Param("houseID"))
	if err != nil {
		respondErr(c, err)
		return
	}
	if _, err := memberAccount(house, middleware.GetUserID(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, house)
}

type joinHouseRequest struct {
	Code string `json:"code" binding:"required"`
}

// JoinHouse adds the caller to the house carrying the invite code: a new
// account with a zero balance.
func (s *HouseService) JoinHouse(c *gin.Context) {
	var req joinHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	userID := middleware.GetUserID(c)

	user, err := s.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if user == nil {
		respondErr(c, apperr.New(apperr.CodeUnauthenticated, "user no longer exists"))
		return
	}

	found, err := s.store.GetHouseByInviteCode(c.Request.Context(), strings.ToUpper(req.Code))
	if err != nil {
		respondErr(c, err)
		return
	}

	var joined *models.House
	err = s.store.RunHouseTx(c.Request.Context(), found.ID, func(tx storage.HouseTx) error {
		h := tx.House()
		if time.Now().After(h.InviteCodeExpiry) {
			return apperr.New(apperr.CodeFailedPrecondition, "invite code has expired")
		}
		if h.Archived {
			return apperr.New(apperr.CodeFailedPrecondition, "house is archived")
		}
		if h.IsMember(userID) {
			return apperr.New(apperr.CodeAlreadyExists, "you are already a member of this house")
		}

		now := time.Now()
		account := models.Account{
			ID:        uuid.New().String(),
			CreatedAt: now,
			Name:      user.DisplayName,
			Type:      models.AccountTypeUser,
			UserID:    userID,
		}
		h.Members = append(h.Members, userID)
		h.Accounts = append(h.Accounts, account)
		if h.Balances == nil {
			h.Balances = map[string]*models.Balance{}
		}
		h.Balances[account.ID] = &models.Balance{}
		joined = h
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("user joined house", "house_id", joined.ID, "user_id", userID)
	c.JSON(http.StatusOK, joined)
}

// LeaveHouse removes the caller from the house. Only an account whose
// balance and per-product figures are all zero may leave: anything else
// would make the house books stop adding up. The last member leaving
// archives the house.
func (s *HouseService) LeaveHouse(c *gin.Context) {
	userID := middleware.GetUserID(c)

	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		account, err := memberAccount(h, userID)
		if err != nil {
			return err
		}
		if !balanceIsZero(h.Balances[account.ID]) {
			return apperr.New(apperr.CodeFailedPrecondition,
				"account still has a balance; settle the house first")
		}

		delete(h.Balances, account.ID)
		account.Removed = true
		account.UserID = ""

		members := make([]string, 0, len(h.Members))
		for _, m := range h.Members {
			if m != userID {
				members = append(members, m)
			}
		}
		h.Members = members

		if len(h.Members) == 0 {
			now := time.Now()
			h.Archived = true
			h.ArchivedAt = &now
		}
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	s.logger.Info("user left house", "house_id", c.Param("houseID"), "user_id", userID)
	c.Status(http.StatusNoContent)
}

// RenewInviteCode issues a fresh invite code with a new expiry.
func (s *HouseService) RenewInviteCode(c *gin.Context) {
	var renewed *models.House
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}
		h.InviteCode = newInviteCode()
		h.InviteCodeExpiry = time.Now().Add(inviteCodeTTL)
		renewed = h
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"inviteCode":       renewed.InviteCode,
		"inviteCodeExpiry": renewed.InviteCodeExpiry,
	})
}

type productRequest struct {
	Name  string `json:"name" binding:"required"`
	Price int64  `json:"price" binding:"required,gt=0"`
}

// AddProduct adds a product with a unit price in minor currency units.
func (s *HouseService) AddProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and a positive price are required"})
		return
	}

	var house *models.House
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}
		h.Products = append(h.Products, models.Product{
			ID:        uuid.New().String(),
			CreatedAt: time.Now(),
			Name:      req.Name,
			Price:     req.Price,
		})
		house = h
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, house)
}

// EditProduct renames or reprices a product. Price changes only affect
// future transactions; recorded items keep the price they were booked at.
func (s *HouseService) EditProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and a positive price are required"})
		return
	}

	var house *models.House
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}
		product := h.ProductByID(c.Param("productID"))
		if product == nil {
			return apperr.New(apperr.CodeNotFound, "product %s not found", c.Param("productID"))
		}
		product.Name = req.Name
		product.Price = req.Price
		house = h
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, house)
}

type sharedAccountRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddSharedAccount adds a virtual account (e.g. a communal fridge) that can
// pay for stock and consume like a member.
func (s *HouseService) AddSharedAccount(c *gin.Context) {
	var req sharedAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	var house *models.House
	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		if _, err := memberAccount(h, middleware.GetUserID(c)); err != nil {
			return err
		}
		account := models.Account{
			ID:        uuid.New().String(),
			CreatedAt: time.Now(),
			Name:      req.Name,
			Type:      models.AccountTypeShared,
		}
		h.SharedAccounts = append(h.SharedAccounts, account)
		if h.Balances == nil {
			h.Balances = map[string]*models.Balance{}
		}
		h.Balances[account.ID] = &models.Balance{}
		house = h
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, house)
}

// RemoveSharedAccount deletes a shared account. Admin only, and only while
// the account's balance is zero.
func (s *HouseService) RemoveSharedAccount(c *gin.Context) {
	accountID := c.Param("accountID")

	err := s.store.RunHouseTx(c.Request.Context(), c.Param("houseID"), func(tx storage.HouseTx) error {
		h := tx.House()
		caller, err := memberAccount(h, middleware.GetUserID(c))
		if err != nil {
			return err
		}
		if !caller.HasRole(models.RoleAdmin) {
			return apperr.New(apperr.CodePermissionDenied, "only admins can remove shared accounts")
		}
		shared := h.SharedAccountByID(accountID)
		if shared == nil {
			return apperr.New(apperr.CodeNotFound, "shared account %s not found", accountID)
		}
		if !balanceIsZero(h.Balances[accountID]) {
			return apperr.New(apperr.CodeFailedPrecondition,
				"shared account still has a balance; settle it first")
		}

		delete(h.Balances, accountID)
		accounts := make([]models.Account, 0, len(h.SharedAccounts))
		for _, a := range h.SharedAccounts {
			if a.ID != accountID {
				accounts = append(accounts, a)
			}
		}
		h.SharedAccounts = accounts
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// balanceIsZero reports whether the balance and all its per-product figures
// are zero. A nil balance counts as zero.
func balanceIsZero(b *models.Balance) bool {
	if b == nil {
		return true
	}
	if b.TotalIn != 0 || b.TotalOut != 0 {
		return false
	}
	for _, pd := range b.Products {
		if pd.AmountIn != 0 || pd.AmountOut != 0 || pd.TotalIn != 0 || pd.TotalOut != 0 {
			return false
		}
	}
	return true
}

// newInviteCode returns a short uppercase join code.
func newInviteCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:8])
}
