package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/flowershop-service/internal/item"
	"github.com/fekuna/flowershop-service/internal/item/dto"
	"github.com/fekuna/flowershop-service/internal/middleware"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ItemHandler struct {
	uc     item.UseCase
	logger logger.ZapLogger
}

func NewItemHandler(uc item.UseCase, log logger.ZapLogger) *ItemHandler {
	return &ItemHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ItemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/items")
	items.POST("", h.CreateItem)
	items.GET("", h.ListItems)
	items.GET("/:id", h.GetItem)
	items.PUT("/:id", h.UpdateItem)
	items.DELETE("/:id", h.DeleteItem)
}

type itemRequest struct {
	Name          string          `json:"name" binding:"required"`
	Type          string          `json:"type"`
	ArrivalDate   string          `json:"arrival_date"`
	ItemDiscount  decimal.Decimal `json:"item_discount"`
	PriceAmount   decimal.Decimal `json:"price_amount"`
	PriceDate     string          `json:"price_date"`
	StockQuantity int             `json:"stock_quantity"`
}

type ItemResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	ArrivalDate   string   `json:"arrival_date,omitempty"`
	ItemDiscount  string   `json:"item_discount"`
	PriceAmount   string   `json:"price_amount"`
	PriceDate     string   `json:"price_date,omitempty"`
	StockQuantity int      `json:"stock_quantity"`
	Suppliers     []string `json:"suppliers"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	arrival, err := middleware.ParseDate("arrival_date", req.ArrivalDate)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	priceDate, err := middleware.ParseDate("price_date", req.PriceDate)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	it, err := h.uc.CreateItem(c.Request.Context(), &dto.CreateItemInput{
		Name:          req.Name,
		Type:          req.Type,
		ArrivalDate:   arrival,
		ItemDiscount:  req.ItemDiscount,
		PriceAmount:   req.PriceAmount,
		PriceDate:     priceDate,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		h.logger.Warn("failed to create item", zap.String("name", req.Name), zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapItemToResponse(it))
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	it, err := h.uc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapItemToResponse(it))
}

func (h *ItemHandler) ListItems(c *gin.Context) {
	page, pageSize := middleware.Pagination(c)
	inStock, _ := strconv.ParseBool(c.Query("in_stock"))

	filters := &dto.ItemFilters{
		SearchQuery: c.Query("q"),
		Type:        c.Query("type"),
		InStock:     inStock,
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
		Page:        page,
		PageSize:    pageSize,
	}

	items, total, err := h.uc.ListItems(c.Request.Context(), filters)
	if err != nil {
		h.logger.Error("failed to list items", zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}

	resp := make([]ItemResponse, len(items))
	for i := range items {
		resp[i] = MapItemToResponse(&items[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     resp,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *ItemHandler) UpdateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	arrival, err := middleware.ParseDate("arrival_date", req.ArrivalDate)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	priceDate, err := middleware.ParseDate("price_date", req.PriceDate)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	it, err := h.uc.UpdateItem(c.Request.Context(), &dto.UpdateItemInput{
		ID:           c.Param("id"),
		Name:         req.Name,
		Type:         req.Type,
		ArrivalDate:  arrival,
		ItemDiscount: req.ItemDiscount,
		PriceAmount:  req.PriceAmount,
		PriceDate:    priceDate,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapItemToResponse(it))
}

func (h *ItemHandler) DeleteItem(c *gin.Context) {
	if err := h.uc.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func MapItemToResponse(it *model.Item) ItemResponse {
	suppliers := it.Suppliers
	if suppliers == nil {
		suppliers = []string{}
	}
	return ItemResponse{
		ID:            it.ID,
		Name:          it.Name,
		Type:          it.Type,
		ArrivalDate:   middleware.FormatDate(it.ArrivalDate),
		ItemDiscount:  it.ItemDiscount.String(),
		PriceAmount:   middleware.Money(it.PriceAmount),
		PriceDate:     middleware.FormatDate(it.PriceDate),
		StockQuantity: it.StockQuantity,
		Suppliers:     suppliers,
		CreatedAt:     it.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     it.UpdatedAt.Format(time.RFC3339),
	}
}
