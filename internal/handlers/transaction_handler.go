package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/services"
)

type TransactionHandler struct {
	txnService   *services.TransactionService
	assetService *services.AssetService
}

func NewTransactionHandler(txnService *services.TransactionService, assetService *services.AssetService) *TransactionHandler {
	return &TransactionHandler{txnService: txnService, assetService: assetService}
}

type TransactionRequest struct {
	AssetID    string   `json:"assetId" binding:"required"`
	Date       string   `json:"date" binding:"required"` // YYYY-MM-DD trading date
	Action     string   `json:"action" binding:"required"`
	Price      *float64 `json:"price"`
	Quantity   *float64 `json:"quantity"`
	Amount     *float64 `json:"amount"`
	Allocation string   `json:"allocation"` // Swing, Hold or Split (buys)
	WalletID   string   `json:"walletId"`   // sells: the wallet to sell from
}

func (r *TransactionRequest) toModel() (*models.Transaction, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return nil, err
	}
	return &models.Transaction{
		AssetID:    r.AssetID,
		Date:       date,
		Action:     models.TxnAction(r.Action),
		Price:      r.Price,
		Quantity:   r.Quantity,
		Amount:     r.Amount,
		Allocation: models.TxnAllocation(r.Allocation),
		WalletID:   r.WalletID,
	}, nil
}

func (h *TransactionHandler) requireOwnedAsset(c *gin.Context, assetID string) bool {
	owner, ok := ownerID(c)
	if !ok {
		return false
	}
	asset, err := h.assetService.GetAsset(c.Request.Context(), assetID)
	if err != nil {
		respondError(c, err)
		return false
	}
	if asset.OwnerID != owner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Asset belongs to another owner"})
		return false
	}
	return true
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if !h.requireOwnedAsset(c, req.AssetID) {
		return
	}

	txn, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	if err := h.txnService.CreateTransaction(c.Request.Context(), txn); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	assetID := c.Param("id")
	if !h.requireOwnedAsset(c, assetID) {
		return
	}
	txns, err := h.txnService.GetTransactions(c.Request.Context(), assetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if !h.requireOwnedAsset(c, req.AssetID) {
		return
	}

	txn, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	if err := h.txnService.UpdateTransaction(c.Request.Context(), c.Param("txnId"), txn); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction updated"})
}

func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	txnID := c.Param("txnId")

	txns, err := h.txnService.GetTransaction(c.Request.Context(), txnID)
	if err != nil {
		respondError(c, err)
		return
	}
	if txns.OwnerID != owner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Transaction belongs to another owner"})
		return
	}

	if err := h.txnService.DeleteTransaction(c.Request.Context(), txnID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
