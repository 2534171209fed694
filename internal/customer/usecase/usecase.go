package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/flowershop-service/internal/customer"
	"github.com/fekuna/flowershop-service/internal/customer/dto"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type customerUseCase struct {
	repo   customer.Repository
	logger logger.ZapLogger
}

func NewCustomerUseCase(repo customer.Repository, log logger.ZapLogger) customer.UseCase {
	return &customerUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *customerUseCase) CreateCustomer(ctx context.Context, input *dto.CreateCustomerInput) (*model.Customer, error) {
	name, phone := strings.TrimSpace(input.Name), strings.TrimSpace(input.Phone)
	if name == "" {
		return nil, model.NewInvalidInput("name", "is required")
	}

	now := time.Now()
	c := &model.Customer{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:      name,
		Phone:     phone,
	}
	if err := uc.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *customerUseCase) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	c, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.NewNotFound("customer", id)
	}
	return c, nil
}

func (uc *customerUseCase) ListCustomers(ctx context.Context, filters *dto.CustomerFilters) ([]model.Customer, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *customerUseCase) UpdateCustomer(ctx context.Context, input *dto.UpdateCustomerInput) (*model.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.NewInvalidInput("name", "is required")
	}

	c, err := uc.GetCustomer(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	c.Name = name
	c.Phone = strings.TrimSpace(input.Phone)
	c.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *customerUseCase) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := uc.GetCustomer(ctx, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *customerUseCase) FindOrCreate(ctx context.Context, name, phone string) (*model.Customer, bool, error) {
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" {
		return nil, false, model.NewInvalidInput("name", "is required")
	}

	existing, err := uc.repo.FindByNameAndPhone(ctx, name, phone)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	c, err := uc.CreateCustomer(ctx, &dto.CreateCustomerInput{Name: name, Phone: phone})
	if err != nil {
		return nil, false, err
	}
	uc.logger.Info("registered new customer", zap.String("customer_id", c.ID))
	return c, true, nil
}

func (uc *customerUseCase) OrderHistory(ctx context.Context, nameQuery string) ([]model.CustomerOrder, error) {
	nameQuery = strings.TrimSpace(nameQuery)
	if nameQuery == "" {
		return nil, model.NewInvalidInput("name", "enter a customer name to search")
	}
	return uc.repo.OrderHistory(ctx, nameQuery)
}

func (uc *customerUseCase) MonthlyCustomers(ctx context.Context, now time.Time) ([]model.Customer, error) {
	start, end := MonthWindow(now)
	return uc.repo.FindWithOrdersBetween(ctx, start, end)
}

func (uc *customerUseCase) NewCustomers(ctx context.Context, now time.Time) ([]model.Customer, error) {
	start, end := MonthWindow(now)
	return uc.repo.FindFirstOrderBetween(ctx, start, end)
}

// MonthWindow returns the calendar month containing now as [start, end) in
// now's location.
func MonthWindow(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}
