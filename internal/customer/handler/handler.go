package handler

import (
	"net/http"
	"time"

	"github.com/fekuna/flowershop-service/internal/customer"
	"github.com/fekuna/flowershop-service/internal/customer/dto"
	"github.com/fekuna/flowershop-service/internal/middleware"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	uc     customer.UseCase
	logger logger.ZapLogger
	now    func() time.Time
}

func NewCustomerHandler(uc customer.UseCase, log logger.ZapLogger) *CustomerHandler {
	return &CustomerHandler{
		uc:     uc,
		logger: log,
		now:    time.Now,
	}
}

func (h *CustomerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	customers := rg.Group("/customers")
	customers.POST("", h.CreateCustomer)
	customers.GET("", h.ListCustomers)
	customers.POST("/find-or-create", h.FindOrCreate)
	customers.GET("/history", h.OrderHistory)
	customers.GET("/monthly", h.MonthlyCustomers)
	customers.GET("/new", h.NewCustomers)
	customers.GET("/:id", h.GetCustomer)
	customers.PUT("/:id", h.UpdateCustomer)
	customers.DELETE("/:id", h.DeleteCustomer)
}

type customerRequest struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type CustomerResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	LoyaltyPoints int64  `json:"loyalty_points"`
	CreatedAt     string `json:"created_at"`
}

type historyLine struct {
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	ItemDiscount string `json:"item_discount"`
}

type historyEntry struct {
	CustomerID   string        `json:"customer_id"`
	CustomerName string        `json:"customer_name"`
	OrderID      string        `json:"order_id"`
	PaymentDate  string        `json:"payment_date,omitempty"`
	TotalPrice   string        `json:"total_price"`
	Status       string        `json:"status"`
	Items        []historyLine `json:"items"`
}

func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	cust, err := h.uc.CreateCustomer(c.Request.Context(), &dto.CreateCustomerInput{Name: req.Name, Phone: req.Phone})
	if err != nil {
		h.logger.Warn("failed to create customer", zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapCustomerToResponse(cust))
}

func (h *CustomerHandler) FindOrCreate(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	cust, created, err := h.uc.FindOrCreate(c.Request.Context(), req.Name, req.Phone)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"customer": MapCustomerToResponse(cust), "created": created})
}

func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	cust, err := h.uc.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapCustomerToResponse(cust))
}

func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	page, pageSize := middleware.Pagination(c)
	customers, total, err := h.uc.ListCustomers(c.Request.Context(), &dto.CustomerFilters{
		SearchQuery: c.Query("q"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		h.logger.Error("failed to list customers", zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"customers": mapCustomers(customers),
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	cust, err := h.uc.UpdateCustomer(c.Request.Context(), &dto.UpdateCustomerInput{
		ID:    c.Param("id"),
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapCustomerToResponse(cust))
}

func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.uc.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CustomerHandler) OrderHistory(c *gin.Context) {
	history, err := h.uc.OrderHistory(c.Request.Context(), c.Query("q"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	resp := make([]historyEntry, len(history))
	for i, o := range history {
		lines := make([]historyLine, len(o.Items))
		for j, l := range o.Items {
			lines[j] = historyLine{
				ItemID:       l.ItemID,
				ItemName:     l.ItemName,
				Quantity:     l.Quantity,
				UnitPrice:    middleware.Money(l.UnitPrice),
				ItemDiscount: l.ItemDiscount.String(),
			}
		}
		resp[i] = historyEntry{
			CustomerID:   o.CustomerID,
			CustomerName: o.CustomerName,
			OrderID:      o.OrderID,
			PaymentDate:  middleware.FormatDate(o.PaymentDate),
			TotalPrice:   middleware.Money(o.TotalPrice),
			Status:       o.Status,
			Items:        lines,
		}
	}
	c.JSON(http.StatusOK, gin.H{"orders": resp})
}

func (h *CustomerHandler) MonthlyCustomers(c *gin.Context) {
	customers, err := h.uc.MonthlyCustomers(c.Request.Context(), h.now())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": mapCustomers(customers)})
}

func (h *CustomerHandler) NewCustomers(c *gin.Context) {
	customers, err := h.uc.NewCustomers(c.Request.Context(), h.now())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": mapCustomers(customers)})
}

func mapCustomers(customers []model.Customer) []CustomerResponse {
	resp := make([]CustomerResponse, len(customers))
	for i := range customers {
		resp[i] = MapCustomerToResponse(&customers[i])
	}
	return resp
}

func MapCustomerToResponse(c *model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:            c.ID,
		Name:          c.Name,
		Phone:         c.Phone,
		LoyaltyPoints: c.LoyaltyPoints,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}
