package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/flowershop-service/internal/model"
	"github.com/fekuna/flowershop-service/pkg/broker"
	"github.com/fekuna/flowershop-service/pkg/logger"
	"go.uber.org/zap"
)

// ItemRefresher is the part of the item use case the listener drives.
type ItemRefresher interface {
	RefreshItems(ctx context.Context, ids []string) error
}

// InventoryListener keeps derived item views in step with order events.
type InventoryListener struct {
	reader broker.Reader
	items  ItemRefresher
	logger logger.ZapLogger
	retry  time.Duration
}

func NewInventoryListener(reader broker.Reader, items ItemRefresher, log logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		reader: reader,
		items:  items,
		logger: log,
		retry:  time.Second,
	}
}

// Start reads until ctx is cancelled or the reader is closed.
func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("starting inventory listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping inventory listener")
			return
		default:
		}

		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, broker.ErrClosed) {
				return
			}
			l.logger.Error("failed to read order event", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.retry):
			}
			continue
		}
		l.processMessage(ctx, msg.Value)
	}
}

func (l *InventoryListener) processMessage(ctx context.Context, value []byte) {
	var event model.OrderEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("failed to unmarshal order event", zap.Error(err))
		return
	}

	if len(event.Payload.Stock) == 0 {
		return
	}

	ids := make([]string, 0, len(event.Payload.Stock))
	for _, s := range event.Payload.Stock {
		ids = append(ids, s.ItemID)
	}

	l.logger.Debug("refreshing items after order event",
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.Payload.OrderID),
		zap.Strings("item_ids", ids),
	)
	if err := l.items.RefreshItems(ctx, ids); err != nil {
		l.logger.Error("failed to refresh items",
			zap.String("order_id", event.Payload.OrderID),
			zap.Error(err),
		)
	}
}
