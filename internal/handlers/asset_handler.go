package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/models"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/services"
)

type AssetHandler struct {
	assetService *services.AssetService
}

func NewAssetHandler(assetService *services.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

type CreateAssetRequest struct {
	Symbol            string   `json:"symbol" binding:"required"`
	Name              string   `json:"name"`
	PriceDropPercent  float64  `json:"priceDropPercent"`
	ProfitLossRatio   float64  `json:"profitLossRatio"`
	SwingTakeProfit   float64  `json:"swingTakeProfit"`
	HoldTakeProfit    float64  `json:"holdTakeProfit"`
	SwingHoldRatio    float64  `json:"swingHoldRatio" binding:"omitempty,min=0,max=100"`
	CommissionPercent *float64 `json:"commissionPercent"`
	TestPrice         *float64 `json:"testPrice"`
}

func (h *AssetHandler) CreateAsset(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	asset := &models.Asset{
		OwnerID:           owner,
		Symbol:            req.Symbol,
		Name:              req.Name,
		PriceDropPercent:  req.PriceDropPercent,
		ProfitLossRatio:   req.ProfitLossRatio,
		SwingTakeProfit:   req.SwingTakeProfit,
		HoldTakeProfit:    req.HoldTakeProfit,
		SwingHoldRatio:    req.SwingHoldRatio,
		CommissionPercent: req.CommissionPercent,
		TestPrice:         req.TestPrice,
	}
	if err := h.assetService.CreateAsset(c.Request.Context(), asset); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"asset": asset})
}

func (h *AssetHandler) ListAssets(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	assets, err := h.assetService.ListAssets(c.Request.Context(), owner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch assets: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// getOwnedAsset loads the asset and rejects cross-owner access.
func (h *AssetHandler) getOwnedAsset(c *gin.Context) (*models.Asset, bool) {
	owner, ok := ownerID(c)
	if !ok {
		return nil, false
	}
	asset, err := h.assetService.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if asset.OwnerID != owner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Asset belongs to another owner"})
		return nil, false
	}
	return asset, true
}

func (h *AssetHandler) GetAsset(c *gin.Context) {
	asset, ok := h.getOwnedAsset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": asset})
}

func (h *AssetHandler) GetSummary(c *gin.Context) {
	asset, ok := h.getOwnedAsset(c)
	if !ok {
		return
	}
	summary, err := h.assetService.GetSummary(c.Request.Context(), asset.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	asset, ok := h.getOwnedAsset(c)
	if !ok {
		return
	}

	var req services.UpdateParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if err := h.assetService.UpdateAsset(c.Request.Context(), asset.ID, req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset updated"})
}
