package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/flowershop-service/internal/auth"
	"github.com/fekuna/flowershop-service/internal/inventory"
	"github.com/fekuna/flowershop-service/internal/inventory/dto"
	itemhandler "github.com/fekuna/flowershop-service/internal/item/handler"
	"github.com/fekuna/flowershop-service/internal/middleware"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	inv.POST("/adjust", h.AdjustStock)
	inv.GET("/movements", h.ListMovements)
	inv.GET("/low-stock", h.ListLowStock)
}

type adjustRequest struct {
	ItemID         string `json:"item_id" binding:"required"`
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
}

type MovementResponse struct {
	ID             string  `json:"id"`
	ItemID         string  `json:"item_id"`
	MovementType   string  `json:"movement_type"`
	QuantityChange int     `json:"quantity_change"`
	QuantityBefore int     `json:"quantity_before"`
	QuantityAfter  int     `json:"quantity_after"`
	ReferenceType  *string `json:"reference_type"`
	ReferenceID    *string `json:"reference_id"`
	Notes          string  `json:"notes"`
	CreatedBy      *string `json:"created_by"`
	CreatedAt      string  `json:"created_at"`
}

func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	m, err := h.uc.AdjustStock(c.Request.Context(), &dto.AdjustStockInput{
		ItemID:         req.ItemID,
		QuantityChange: req.QuantityChange,
		Reason:         req.Reason,
		EmployeeID:     auth.GetEmployeeID(c.Request.Context()),
	})
	if err != nil {
		h.logger.Warn("stock adjustment rejected", zap.String("item_id", req.ItemID), zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapMovement(m))
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	page, pageSize := middleware.Pagination(c)
	start, err := middleware.ParseDate("start_date", c.Query("start_date"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	end, err := middleware.ParseDate("end_date", c.Query("end_date"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	movements, total, err := h.uc.ListMovements(c.Request.Context(), &dto.MovementFilters{
		ItemID:        c.Query("item_id"),
		MovementType:  c.Query("movement_type"),
		ReferenceType: c.Query("reference_type"),
		ReferenceID:   c.Query("reference_id"),
		StartDate:     start,
		EndDate:       end,
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		h.logger.Error("failed to list stock movements", zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}

	resp := make([]MovementResponse, len(movements))
	for i := range movements {
		resp[i] = mapMovement(&movements[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"movements": resp,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	page, pageSize := middleware.Pagination(c)
	threshold, _ := strconv.Atoi(c.Query("threshold"))

	items, total, err := h.uc.ListLowStock(c.Request.Context(), threshold, page, pageSize)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	resp := make([]itemhandler.ItemResponse, len(items))
	for i := range items {
		resp[i] = itemhandler.MapItemToResponse(&items[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     resp,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func mapMovement(m *model.StockMovement) MovementResponse {
	return MovementResponse{
		ID:             m.ID,
		ItemID:         m.ItemID,
		MovementType:   m.MovementType,
		QuantityChange: m.QuantityChange,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		Notes:          m.Notes,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}
