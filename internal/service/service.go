// Package service implements the HTTP API: authentication, house and member
// management, stock and transaction recording, and settlement. Handlers
// validate input and membership, run the core computations inside a house
// transaction and translate typed errors into HTTP statuses.
package service

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/MarnickvdA/streepn-serverless/internal/apperr"
	"github.com/MarnickvdA/streepn-serverless/internal/models"
)

// respondErr writes the error as a JSON body with the mapped status.
// Untyped errors respond as 500 with a generic message; the real cause goes
// to the log only.
func respondErr(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		slog.Error("request failed", "route", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": apperr.MessageOf(err)})
}

// memberAccount resolves the caller's account in the house, enforcing
// membership.
func memberAccount(h *models.House, userID string) (*models.Account, error) {
	account := h.AccountByUserID(userID)
	if account == nil {
		return nil, apperr.New(apperr.CodePermissionDenied, "you are not a member of this house")
	}
	return account, nil
}
