package handler

import (
	"net/http"
	"time"

	"github.com/fekuna/flowershop-service/internal/middleware"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/order"
	"github.com/fekuna/flowershop-service/internal/order/dto"
	"github.com/fekuna/flowershop-service/internal/pricing"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	orders.PUT("/:id", h.UpdateOrder)
	orders.POST("/:id/cancel", h.CancelOrder)
	orders.DELETE("/:id", h.DeleteOrder)
}

type lineRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

type orderRequest struct {
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	Status          string          `json:"status"`
	OrderDiscount   decimal.Decimal `json:"order_discount"`
	PaymentDate     string          `json:"payment_date"`
	PaymentMethod   string          `json:"payment_method"`
	Budget          decimal.Decimal `json:"budget"`
	Deposit         decimal.Decimal `json:"deposit"`
	Confirmation    bool            `json:"confirmation"`
	ReceiverAddress string          `json:"receiver_address"`
	ReceiverPhone   string          `json:"receiver_phone"`
	Items           []lineRequest   `json:"items"`
}

type LineResponse struct {
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	ItemDiscount string `json:"item_discount"`
	LineTotal    string `json:"line_total"`
}

type OrderResponse struct {
	ID              string         `json:"id"`
	CustomerID      string         `json:"customer_id"`
	CustomerName    string         `json:"customer_name"`
	EmployeeID      string         `json:"employee_id"`
	Status          string         `json:"status"`
	OrderDiscount   string         `json:"order_discount"`
	PaymentDate     string         `json:"payment_date,omitempty"`
	PaymentMethod   string         `json:"payment_method"`
	TotalPrice      string         `json:"total_price"`
	Budget          string         `json:"budget"`
	Deposit         string         `json:"deposit"`
	Remaining       string         `json:"remaining"`
	Confirmation    bool           `json:"confirmation"`
	ReceiverAddress string         `json:"receiver_address"`
	ReceiverPhone   string         `json:"receiver_phone"`
	Items           []LineResponse `json:"items"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}
	paymentDate, err := middleware.ParseDate("payment_date", req.PaymentDate)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	o, err := h.uc.CreateOrder(c.Request.Context(), &dto.CreateOrderInput{
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Status:          req.Status,
		OrderDiscount:   req.OrderDiscount,
		PaymentDate:     paymentDate,
		PaymentMethod:   req.PaymentMethod,
		Budget:          req.Budget,
		Deposit:         req.Deposit,
		Confirmation:    req.Confirmation,
		ReceiverAddress: req.ReceiverAddress,
		ReceiverPhone:   req.ReceiverPhone,
		Lines:           toLines(req.Items),
	})
	middleware.RecordOrderOperation("create", err == nil)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapOrderToResponse(o))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	o, err := h.uc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapOrderToResponse(o))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := middleware.Pagination(c)

	orders, total, err := h.uc.ListOrders(c.Request.Context(), &dto.OrderFilters{
		SearchQuery: c.Query("q"),
		Status:      c.Query("status"),
		CustomerID:  c.Query("customer_id"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		h.logger.Error("failed to list orders", zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i := range orders {
		resp[i] = MapOrderToResponse(&orders[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":    resp,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}
	paymentDate, err := middleware.ParseDate("payment_date", req.PaymentDate)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	o, err := h.uc.UpdateOrder(c.Request.Context(), &dto.UpdateOrderInput{
		ID:              c.Param("id"),
		Status:          req.Status,
		OrderDiscount:   req.OrderDiscount,
		PaymentDate:     paymentDate,
		PaymentMethod:   req.PaymentMethod,
		Budget:          req.Budget,
		Deposit:         req.Deposit,
		Confirmation:    req.Confirmation,
		ReceiverAddress: req.ReceiverAddress,
		ReceiverPhone:   req.ReceiverPhone,
		Lines:           toLines(req.Items),
	})
	middleware.RecordOrderOperation("update", err == nil)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapOrderToResponse(o))
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	o, err := h.uc.CancelOrder(c.Request.Context(), c.Param("id"))
	middleware.RecordOrderOperation("cancel", err == nil)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapOrderToResponse(o))
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	err := h.uc.DeleteOrder(c.Request.Context(), c.Param("id"))
	middleware.RecordOrderOperation("delete", err == nil)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// toLines keeps nil for an absent items field so an update leaves the
// stored lines alone.
func toLines(items []lineRequest) []dto.LineInput {
	if items == nil {
		return nil
	}
	lines := make([]dto.LineInput, len(items))
	for i, it := range items {
		lines[i] = dto.LineInput{ItemID: it.ItemID, Quantity: it.Quantity}
	}
	return lines
}

func MapOrderToResponse(o *model.Order) OrderResponse {
	items := make([]LineResponse, len(o.Lines))
	for i, l := range o.Lines {
		line := pricing.LineItem{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, ItemDiscount: l.ItemDiscount}
		items[i] = LineResponse{
			ItemID:       l.ItemID,
			ItemName:     l.ItemName,
			Quantity:     l.Quantity,
			UnitPrice:    middleware.Money(l.UnitPrice),
			ItemDiscount: l.ItemDiscount.String(),
			LineTotal:    middleware.Money(line.Total()),
		}
	}

	return OrderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		CustomerName:    o.CustomerName,
		EmployeeID:      o.EmployeeID,
		Status:          o.Status,
		OrderDiscount:   o.OrderDiscount.String(),
		PaymentDate:     middleware.FormatDate(o.PaymentDate),
		PaymentMethod:   o.PaymentMethod,
		TotalPrice:      middleware.Money(o.TotalPrice),
		Budget:          middleware.Money(o.Budget),
		Deposit:         middleware.Money(o.Deposit),
		Remaining:       middleware.Money(o.Remaining()),
		Confirmation:    o.Confirmation,
		ReceiverAddress: o.ReceiverAddress,
		ReceiverPhone:   o.ReceiverPhone,
		Items:           items,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
}
