package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/ledger"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/services"
)

// LedgerHandler exposes the split and migration operations of the engine.
type LedgerHandler struct {
	engine       *ledger.Engine
	assetService *services.AssetService
	assetHandler *AssetHandler
}

func NewLedgerHandler(engine *ledger.Engine, assetService *services.AssetService, assetHandler *AssetHandler) *LedgerHandler {
	return &LedgerHandler{engine: engine, assetService: assetService, assetHandler: assetHandler}
}

type SplitRequest struct {
	Date           string  `json:"date" binding:"required"` // YYYY-MM-DD
	SplitRatio     float64 `json:"splitRatio" binding:"required,gt=1"`
	PreSplitPrice  float64 `json:"preSplitPrice" binding:"required,gt=0"`
	PostSplitPrice float64 `json:"postSplitPrice" binding:"required,gt=0"`
}

func (h *LedgerHandler) ProcessSplit(c *gin.Context) {
	asset, ok := h.assetHandler.getOwnedAsset(c)
	if !ok {
		return
	}

	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	result, err := h.engine.ProcessStockSplit(c.Request.Context(), ledger.SplitParams{
		AssetID:        asset.ID,
		OwnerID:        asset.OwnerID,
		SplitDate:      date,
		SplitRatio:     req.SplitRatio,
		PreSplitPrice:  req.PreSplitPrice,
		PostSplitPrice: req.PostSplitPrice,
	})
	if err != nil {
		if result != nil && result.Incomplete() {
			// Split recorded but not fully applied; the client can resume
			// with the returned transaction ID.
			c.JSON(http.StatusConflict, gin.H{
				"error":  err.Error(),
				"result": result,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

type ResumeSplitRequest struct {
	SplitTxnID string `json:"splitTxnId" binding:"required"`
}

func (h *LedgerHandler) ResumeSplit(c *gin.Context) {
	asset, ok := h.assetHandler.getOwnedAsset(c)
	if !ok {
		return
	}

	var req ResumeSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.engine.ResumeStockSplit(c.Request.Context(), asset.ID, req.SplitTxnID)
	if err != nil {
		if result != nil && result.Incomplete() {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "result": result})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *LedgerHandler) MigrateCashFlow(c *gin.Context) {
	asset, ok := h.assetHandler.getOwnedAsset(c)
	if !ok {
		return
	}

	totals, err := h.engine.MigrateStockCashFlow(c.Request.Context(), asset.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totals": totals,
		"roic":   ledger.ROIC(totals.CurrentCashBalance, totals.TotalOutOfPocket),
	})
}
