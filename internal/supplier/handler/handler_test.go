package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/supplier/dto"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUseCase struct {
	created *dto.CreateSupplierInput
	err     error
}

func (s *stubUseCase) CreateSupplier(_ context.Context, in *dto.CreateSupplierInput) (*model.Supplier, error) {
	s.created = in
	if s.err != nil {
		return nil, s.err
	}
	return &model.Supplier{BaseModel: model.BaseModel{ID: "s1"}, Name: in.Name, ItemIDs: in.ItemIDs}, nil
}

func (s *stubUseCase) GetSupplier(_ context.Context, id string) (*model.Supplier, error) {
	return &model.Supplier{BaseModel: model.BaseModel{ID: id}, Name: "Bloom Co"}, nil
}

func (s *stubUseCase) ListSuppliers(context.Context, *dto.SupplierFilters) ([]model.Supplier, int, error) {
	return nil, 0, nil
}

func (s *stubUseCase) UpdateSupplier(context.Context, *dto.UpdateSupplierInput) (*model.Supplier, error) {
	return nil, model.NewNotFound("item", "ghost")
}

func (s *stubUseCase) DeleteSupplier(context.Context, string) error { return nil }

func newRouter(uc *stubUseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewSupplierHandler(uc, logger.NewNop()).RegisterRoutes(r.Group("/api"))
	return r
}

func TestCreateSupplier(t *testing.T) {
	uc := &stubUseCase{}
	r := newRouter(uc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/suppliers", strings.NewReader(`{"name":"Bloom Co","item_ids":["rose"]}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"rose"}, uc.created.ItemIDs)

	var resp SupplierResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{}, resp.ItemNames)
}

func TestCreateSupplier_Errors(t *testing.T) {
	r := newRouter(&stubUseCase{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/suppliers", strings.NewReader(`{"contact":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r = newRouter(&stubUseCase{err: fmt.Errorf("supplier %q: %w", "Bloom Co", model.ErrConflict)})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/suppliers", strings.NewReader(`{"name":"Bloom Co"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateSupplier_UnknownItem(t *testing.T) {
	r := newRouter(&stubUseCase{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/suppliers/s1", strings.NewReader(`{"name":"Bloom Co","item_ids":["ghost"]}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
