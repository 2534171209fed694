package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/flowershop-service/internal/auth"
	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/internal/order"
	"github.com/fekuna/flowershop-service/internal/order/dto"
	"github.com/fekuna/flowershop-service/internal/pricing"
	"github.com/fekuna/flowershop-service/pkg/broker"
	"github.com/fekuna/flowershop-service/pkg/cache"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	priorityNormal    uint8 = 0
	priorityCancelled uint8 = 5
)

type Config struct {
	PointRate         int64
	DefaultEmployeeID string
}

// ItemRefresher drops cached item views after their stock changed.
type ItemRefresher interface {
	RefreshItems(ctx context.Context, ids []string) error
}

type orderUseCase struct {
	repo      order.Repository
	locker    order.Locker
	publisher broker.Publisher
	items     ItemRefresher
	cfg       Config
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewOrderUseCase builds the order use case. locker may be nil, in which
// case only row locks serialize writers. A nil publisher drops events and a
// nil items leaves item listings to expire on their own.
func NewOrderUseCase(repo order.Repository, locker order.Locker, publisher broker.Publisher, items ItemRefresher, cfg Config, log logger.ZapLogger) order.UseCase {
	if publisher == nil {
		publisher = broker.NopPublisher{}
	}
	if cfg.PointRate <= 0 {
		cfg.PointRate = pricing.DefaultPointRate
	}
	return &orderUseCase{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		items:     items,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

func OrderLockKey(id string) string {
	return "lock:order:" + id
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	status := pricing.StatusPending
	if strings.TrimSpace(input.Status) != "" {
		s, err := pricing.ParseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		if s == pricing.StatusCancelled {
			return nil, model.NewInvalidInput("status", "a new order cannot start cancelled")
		}
		status = s
	}
	if strings.TrimSpace(input.CustomerID) == "" && strings.TrimSpace(input.CustomerName) == "" {
		return nil, model.NewInvalidInput("customer", "a customer id or name is required")
	}
	lines, err := mergeLines(input.Lines)
	if err != nil {
		return nil, err
	}
	if err := validateTerms(input.OrderDiscount, input.Deposit, input.Budget); err != nil {
		return nil, err
	}

	now := uc.now()
	o := &model.Order{
		BaseModel:       model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		CustomerID:      strings.TrimSpace(input.CustomerID),
		EmployeeID:      uc.employeeID(ctx, input.EmployeeID),
		PaymentDate:     input.PaymentDate,
		PaymentMethod:   strings.TrimSpace(input.PaymentMethod),
		Budget:          input.Budget,
		Confirmation:    input.Confirmation,
		ReceiverAddress: strings.TrimSpace(input.ReceiverAddress),
		ReceiverPhone:   strings.TrimSpace(input.ReceiverPhone),
	}

	var plan pricing.Plan
	err = uc.repo.RunInTx(ctx, func(tx order.TxStore) error {
		var (
			c   *model.Customer
			err error
		)
		if o.CustomerID != "" {
			c, err = tx.FindCustomer(ctx, o.CustomerID)
			if err != nil {
				return err
			}
			if c == nil {
				return model.NewNotFound("customer", o.CustomerID)
			}
		} else {
			c, err = tx.FindOrCreateCustomer(ctx, strings.TrimSpace(input.CustomerName), strings.TrimSpace(input.CustomerPhone))
			if err != nil {
				return err
			}
		}
		o.CustomerID = c.ID
		o.CustomerName = c.Name

		items, err := tx.LockItems(ctx, lineItemIDs(lines))
		if err != nil {
			return err
		}
		priced, err := priceLines(lines, items, nil)
		if err != nil {
			return err
		}

		draft := pricing.DraftOrder{
			CustomerID:       o.CustomerID,
			Status:           status,
			Lines:            priced,
			OrderDiscountPct: input.OrderDiscount,
			Deposit:          input.Deposit,
			Confirmed:        input.Confirmation,
		}
		plan, err = pricing.PlanSave(pricing.Snapshot{}, draft, stockLookup(items), uc.cfg.PointRate)
		if err != nil {
			return err
		}

		applyPlan(o, draft, plan, items)
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		return uc.applyEffects(ctx, tx, o, plan)
	})
	if err != nil {
		uc.logger.Warn("order create rejected", zap.Error(err))
		return nil, err
	}

	uc.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.String("total", o.TotalPrice.StringFixed(2)),
	)
	uc.refreshItems(ctx, plan)
	uc.publish(ctx, model.OrderEventCreated, o, plan)
	return o, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, model.NewNotFound("order", id)
	}
	return o, nil
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error) {
	if filters.Status != "" {
		s, err := pricing.ParseStatus(filters.Status)
		if err != nil {
			return nil, 0, err
		}
		filters.Status = s.String()
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *orderUseCase) UpdateOrder(ctx context.Context, input *dto.UpdateOrderInput) (*model.Order, error) {
	var status pricing.Status
	if strings.TrimSpace(input.Status) != "" {
		s, err := pricing.ParseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		status = s
	}
	var lines []dto.LineInput
	if input.Lines != nil {
		merged, err := mergeLines(input.Lines)
		if err != nil {
			return nil, err
		}
		lines = merged
	}
	if err := validateTerms(input.OrderDiscount, input.Deposit, input.Budget); err != nil {
		return nil, err
	}

	return uc.save(ctx, input.ID, func(prev *model.Order) editRequest {
		next := status
		if next == "" {
			next = pricing.Status(prev.Status)
		}
		return editRequest{
			status:          next,
			lines:           lines,
			orderDiscount:   input.OrderDiscount,
			deposit:         input.Deposit,
			budget:          input.Budget,
			confirmation:    input.Confirmation,
			paymentDate:     input.PaymentDate,
			paymentMethod:   strings.TrimSpace(input.PaymentMethod),
			receiverAddress: strings.TrimSpace(input.ReceiverAddress),
			receiverPhone:   strings.TrimSpace(input.ReceiverPhone),
			employeeID:      uc.employeeID(ctx, input.EmployeeID),
		}
	})
}

// CancelOrder moves an order to Cancelled and keeps everything else as it
// is stored.
func (uc *orderUseCase) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	return uc.save(ctx, id, func(prev *model.Order) editRequest {
		return editRequest{
			status:          pricing.StatusCancelled,
			orderDiscount:   prev.OrderDiscount,
			deposit:         prev.Deposit,
			budget:          prev.Budget,
			confirmation:    prev.Confirmation,
			paymentDate:     prev.PaymentDate,
			paymentMethod:   prev.PaymentMethod,
			receiverAddress: prev.ReceiverAddress,
			receiverPhone:   prev.ReceiverPhone,
			employeeID:      uc.employeeID(ctx, ""),
		}
	})
}

func (uc *orderUseCase) DeleteOrder(ctx context.Context, id string) error {
	unlock, err := uc.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	var (
		prev *model.Order
		plan pricing.Plan
	)
	err = uc.repo.RunInTx(ctx, func(tx order.TxStore) error {
		var err error
		prev, err = tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if prev == nil {
			return model.NewNotFound("order", id)
		}

		plan = pricing.PlanRemoval(snapshotOf(prev), uc.cfg.PointRate)
		if err := uc.applyEffects(ctx, tx, prev, plan); err != nil {
			return err
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}

	uc.logger.Info("order deleted", zap.String("order_id", id), zap.Int64("loyalty_delta", plan.Loyalty.Delta()))
	uc.refreshItems(ctx, plan)
	uc.publish(ctx, model.OrderEventDeleted, prev, plan)
	return nil
}

type editRequest struct {
	status          pricing.Status
	lines           []dto.LineInput // nil keeps the stored lines
	orderDiscount   decimal.Decimal
	deposit         decimal.Decimal
	budget          decimal.Decimal
	confirmation    bool
	paymentDate     *time.Time
	paymentMethod   string
	receiverAddress string
	receiverPhone   string
	employeeID      string
}

// save applies one edit of a stored order under the order lock and in one
// transaction.
func (uc *orderUseCase) save(ctx context.Context, id string, edit func(prev *model.Order) editRequest) (*model.Order, error) {
	unlock, err := uc.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		o    *model.Order
		plan pricing.Plan
	)
	err = uc.repo.RunInTx(ctx, func(tx order.TxStore) error {
		prev, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if prev == nil {
			return model.NewNotFound("order", id)
		}
		if pricing.Status(prev.Status).Locked() {
			return model.ErrOrderLocked
		}

		req := edit(prev)

		previous := snapshotOf(prev)
		var items map[string]model.Item
		nextLines := previous.Lines
		if req.lines != nil && req.status != pricing.StatusCancelled {
			ids := unionIDs(lineItemIDs(req.lines), prev.Lines)
			items, err = tx.LockItems(ctx, ids)
			if err != nil {
				return err
			}
			nextLines, err = priceLines(req.lines, items, prev.Lines)
			if err != nil {
				return err
			}
		}

		draft := pricing.DraftOrder{
			CustomerID:       prev.CustomerID,
			Status:           req.status,
			Lines:            nextLines,
			OrderDiscountPct: req.orderDiscount,
			Deposit:          req.deposit,
			Confirmed:        req.confirmation,
		}
		plan, err = pricing.PlanSave(previous, draft, stockLookup(items), uc.cfg.PointRate)
		if err != nil {
			return err
		}

		o = prev
		o.PaymentDate = req.paymentDate
		o.PaymentMethod = req.paymentMethod
		o.Budget = req.budget
		o.Confirmation = req.confirmation
		o.ReceiverAddress = req.receiverAddress
		o.ReceiverPhone = req.receiverPhone
		o.EmployeeID = req.employeeID
		o.UpdatedAt = uc.now()
		applyPlan(o, draft, plan, itemsWithNames(items, prev.Lines))

		if err := tx.UpdateOrder(ctx, o); err != nil {
			return err
		}
		return uc.applyEffects(ctx, tx, o, plan)
	})
	if err != nil {
		uc.logger.Warn("order update rejected", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}

	eventType := model.OrderEventUpdated
	if o.Status == pricing.StatusCancelled.String() {
		eventType = model.OrderEventCancelled
	}
	uc.logger.Info("order saved",
		zap.String("order_id", o.ID),
		zap.String("status", o.Status),
		zap.Int64("loyalty_delta", plan.Loyalty.Delta()),
	)
	uc.refreshItems(ctx, plan)
	uc.publish(ctx, eventType, o, plan)
	return o, nil
}

// applyEffects writes the stock movements and the loyalty change of plan.
func (uc *orderUseCase) applyEffects(ctx context.Context, tx order.TxStore, o *model.Order, plan pricing.Plan) error {
	refType := model.ReferenceOrder
	for _, adj := range plan.Stock {
		movementType := model.MovementOrderReserve
		if adj.Delta > 0 {
			movementType = model.MovementOrderRelease
		}
		orderID := o.ID
		m := &model.StockMovement{
			ID:             uuid.New().String(),
			ItemID:         adj.ItemID,
			MovementType:   movementType,
			QuantityChange: adj.Delta,
			ReferenceType:  &refType,
			ReferenceID:    &orderID,
			CreatedAt:      uc.now(),
		}
		if o.EmployeeID != "" {
			employee := o.EmployeeID
			m.CreatedBy = &employee
		}
		if err := tx.ApplyStock(ctx, m); err != nil {
			return err
		}
	}
	return tx.ApplyLoyalty(ctx, plan.Loyalty)
}

func (uc *orderUseCase) lock(ctx context.Context, id string) (func(), error) {
	if uc.locker == nil {
		return func() {}, nil
	}
	unlock, err := uc.locker.Lock(ctx, OrderLockKey(id))
	if err != nil {
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, fmt.Errorf("order %s: %w", id, model.ErrBusy)
		}
		return nil, fmt.Errorf("lock order %s: %w", id, err)
	}
	return unlock, nil
}

// refreshItems drops cached views of the items whose stock plan changed.
// It runs after commit, so a failure is only logged.
func (uc *orderUseCase) refreshItems(ctx context.Context, plan pricing.Plan) {
	if uc.items == nil || len(plan.Stock) == 0 {
		return
	}
	ids := make([]string, len(plan.Stock))
	for i, adj := range plan.Stock {
		ids[i] = adj.ItemID
	}
	if err := uc.items.RefreshItems(ctx, ids); err != nil {
		uc.logger.Warn("failed to refresh order items", zap.Strings("item_ids", ids), zap.Error(err))
	}
}

// publish reports a committed change. Failures are logged and never undo
// the operation.
func (uc *orderUseCase) publish(ctx context.Context, eventType string, o *model.Order, plan pricing.Plan) {
	stock := make([]model.StockChangeEvent, len(plan.Stock))
	for i, adj := range plan.Stock {
		stock[i] = model.StockChangeEvent{ItemID: adj.ItemID, Delta: adj.Delta}
	}
	event := model.OrderEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Payload: model.OrderEventDetail{
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			Status:       o.Status,
			TotalPrice:   o.TotalPrice.StringFixed(pricing.CurrencyPlaces),
			Stock:        stock,
			LoyaltyDelta: plan.Loyalty.Delta(),
		},
		Timestamp: uc.now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		uc.logger.Error("failed to encode order event", zap.Error(err))
		return
	}

	priority := priorityNormal
	if eventType == model.OrderEventCancelled || eventType == model.OrderEventDeleted {
		priority = priorityCancelled
	}
	if err := uc.publisher.Publish(ctx, broker.Message{Key: o.ID, Value: data, Priority: priority}); err != nil {
		uc.logger.Error("failed to publish order event",
			zap.String("order_id", o.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

func (uc *orderUseCase) employeeID(ctx context.Context, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if id := auth.GetEmployeeID(ctx); id != "" {
		return id
	}
	return uc.cfg.DefaultEmployeeID
}

// mergeLines validates requested lines and combines repeated items, keeping
// the order of first appearance.
func mergeLines(in []dto.LineInput) ([]dto.LineInput, error) {
	if len(in) == 0 {
		return nil, model.NewInvalidInput("items", "an order needs at least one item")
	}

	index := make(map[string]int, len(in))
	out := make([]dto.LineInput, 0, len(in))
	for i, l := range in {
		id := strings.TrimSpace(l.ItemID)
		if id == "" {
			return nil, model.NewInvalidInput(fmt.Sprintf("items[%d].item_id", i), "is required")
		}
		if l.Quantity <= 0 {
			return nil, model.NewInvalidInput(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if j, ok := index[id]; ok {
			out[j].Quantity += l.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, dto.LineInput{ItemID: id, Quantity: l.Quantity})
	}
	return out, nil
}

func validateTerms(orderDiscount, deposit, budget decimal.Decimal) error {
	if orderDiscount.IsNegative() || orderDiscount.GreaterThan(decimal.NewFromInt(100)) {
		return model.NewInvalidInput("order_discount", "must be between 0 and 100")
	}
	if deposit.IsNegative() {
		return model.NewInvalidInput("deposit", "must not be negative")
	}
	if budget.IsNegative() {
		return model.NewInvalidInput("budget", "must not be negative")
	}
	return nil
}

// priceLines turns requested lines into priced line items. Items already on
// the order keep the price and discount they were sold at; new items take
// the current ones.
func priceLines(lines []dto.LineInput, items map[string]model.Item, stored []model.OrderLine) ([]pricing.LineItem, error) {
	kept := make(map[string]model.OrderLine, len(stored))
	for _, l := range stored {
		kept[l.ItemID] = l
	}

	priced := make([]pricing.LineItem, 0, len(lines))
	for _, l := range lines {
		if s, ok := kept[l.ItemID]; ok {
			priced = append(priced, pricing.LineItem{
				ItemID:       l.ItemID,
				Quantity:     l.Quantity,
				UnitPrice:    s.UnitPrice,
				ItemDiscount: s.ItemDiscount,
			})
			continue
		}
		it, ok := items[l.ItemID]
		if !ok {
			return nil, model.NewNotFound("item", l.ItemID)
		}
		priced = append(priced, pricing.LineItem{
			ItemID:       l.ItemID,
			Quantity:     l.Quantity,
			UnitPrice:    it.PriceAmount,
			ItemDiscount: it.ItemDiscount,
		})
	}
	return priced, nil
}

func stockLookup(items map[string]model.Item) pricing.StockLookup {
	return func(itemID string) (int, error) {
		it, ok := items[itemID]
		if !ok {
			return 0, model.NewNotFound("item", itemID)
		}
		return it.StockQuantity, nil
	}
}

func snapshotOf(o *model.Order) pricing.Snapshot {
	lines := make([]pricing.LineItem, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = pricing.LineItem{
			ItemID:       l.ItemID,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			ItemDiscount: l.ItemDiscount,
		}
	}
	status := pricing.Status(o.Status)
	return pricing.Snapshot{
		CustomerID: o.CustomerID,
		Status:     status,
		Lines:      lines,
		Settlement: pricing.Settlement{
			Total:     o.TotalPrice,
			Deposit:   o.Deposit,
			Confirmed: o.Confirmation,
			Cancelled: status == pricing.StatusCancelled,
		},
	}
}

// applyPlan copies the planned totals and lines onto o. names supplies item
// names for the response.
func applyPlan(o *model.Order, draft pricing.DraftOrder, plan pricing.Plan, names map[string]model.Item) {
	o.Status = draft.Status.String()
	o.OrderDiscount = plan.Totals.OrderDiscountPct
	o.TotalPrice = plan.Totals.TotalAfterDiscount
	o.Deposit = plan.Totals.Deposit

	o.Lines = make([]model.OrderLine, len(plan.Lines))
	for i, l := range plan.Lines {
		o.Lines[i] = model.OrderLine{
			OrderID:      o.ID,
			ItemID:       l.ItemID,
			ItemName:     names[l.ItemID].Name,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			ItemDiscount: l.ItemDiscount,
		}
	}
}

func lineItemIDs(lines []dto.LineInput) []string {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemID
	}
	return ids
}

func unionIDs(ids []string, stored []model.OrderLine) []string {
	seen := make(map[string]bool, len(ids)+len(stored))
	out := make([]string, 0, len(ids)+len(stored))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, l := range stored {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			out = append(out, l.ItemID)
		}
	}
	return out
}

// itemsWithNames adds the stored line names to items for lines whose item
// row was not loaded.
func itemsWithNames(items map[string]model.Item, stored []model.OrderLine) map[string]model.Item {
	out := make(map[string]model.Item, len(items)+len(stored))
	for id, it := range items {
		out[id] = it
	}
	for _, l := range stored {
		if _, ok := out[l.ItemID]; !ok {
			out[l.ItemID] = model.Item{BaseModel: model.BaseModel{ID: l.ItemID}, Name: l.ItemName}
		}
	}
	return out
}
