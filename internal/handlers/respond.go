package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/ledger"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

// respondError maps ledger and store errors to HTTP status codes.
// Persistence failures are 502: the document store, not this service,
// refused the work, and the caller may retry.
func respondError(c *gin.Context, err error) {
	var invalidInput *ledger.InvalidInputError
	var negRemaining *ledger.NegativeRemainingSharesError
	var negShares *ledger.NegativeSharesError
	var persistence *ledger.PersistenceError

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &invalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &negRemaining):
		c.JSON(http.StatusConflict, gin.H{"error": "this edit would create negative remaining shares"})
	case errors.As(err, &negShares):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &persistence):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
