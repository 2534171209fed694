package handler

import (
	"net/http"
	"time"

	"github.com/fekuna/flowershop-service/internal/middleware"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/supplier"
	"github.com/fekuna/flowershop-service/internal/supplier/dto"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SupplierHandler struct {
	uc     supplier.UseCase
	logger logger.ZapLogger
}

func NewSupplierHandler(uc supplier.UseCase, log logger.ZapLogger) *SupplierHandler {
	return &SupplierHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	suppliers := rg.Group("/suppliers")
	suppliers.POST("", h.CreateSupplier)
	suppliers.GET("", h.ListSuppliers)
	suppliers.GET("/:id", h.GetSupplier)
	suppliers.PUT("/:id", h.UpdateSupplier)
	suppliers.DELETE("/:id", h.DeleteSupplier)
}

type supplierRequest struct {
	Name    string   `json:"name" binding:"required"`
	Contact string   `json:"contact"`
	ItemIDs []string `json:"item_ids"`
}

type SupplierResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Contact   string   `json:"contact"`
	ItemIDs   []string `json:"item_ids"`
	ItemNames []string `json:"item_names"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	s, err := h.uc.CreateSupplier(c.Request.Context(), &dto.CreateSupplierInput{
		Name:    req.Name,
		Contact: req.Contact,
		ItemIDs: req.ItemIDs,
	})
	if err != nil {
		h.logger.Warn("failed to create supplier", zap.String("name", req.Name), zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapSupplierToResponse(s))
}

func (h *SupplierHandler) GetSupplier(c *gin.Context) {
	s, err := h.uc.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSupplierToResponse(s))
}

func (h *SupplierHandler) ListSuppliers(c *gin.Context) {
	page, pageSize := middleware.Pagination(c)
	suppliers, total, err := h.uc.ListSuppliers(c.Request.Context(), &dto.SupplierFilters{
		SearchQuery: c.Query("q"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		h.logger.Error("failed to list suppliers", zap.Error(err))
		middleware.AbortWithError(c, err)
		return
	}

	resp := make([]SupplierResponse, len(suppliers))
	for i := range suppliers {
		resp[i] = MapSupplierToResponse(&suppliers[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"suppliers": resp,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, model.NewInvalidInput("body", err.Error()))
		return
	}

	s, err := h.uc.UpdateSupplier(c.Request.Context(), &dto.UpdateSupplierInput{
		ID:      c.Param("id"),
		Name:    req.Name,
		Contact: req.Contact,
		ItemIDs: req.ItemIDs,
	})
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSupplierToResponse(s))
}

func (h *SupplierHandler) DeleteSupplier(c *gin.Context) {
	if err := h.uc.DeleteSupplier(c.Request.Context(), c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func MapSupplierToResponse(s *model.Supplier) SupplierResponse {
	ids, names := s.ItemIDs, s.ItemNames
	if ids == nil {
		ids = []string{}
	}
	if names == nil {
		names = []string{}
	}
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Contact:   s.Contact,
		ItemIDs:   ids,
		ItemNames: names,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}
