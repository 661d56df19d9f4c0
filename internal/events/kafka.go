package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/qh20812/shopnest-inventory/internal/domain"
)

// KafkaPublisher streams stock events to the reporting/audit consumers.
// Delivery is best-effort: a failed publish is logged and dropped, never
// surfaced to the mutating operation that triggered it.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

type ledgerEvent struct {
	Type           string    `json:"type"`
	LogID          string    `json:"log_id"`
	VariantID      string    `json:"variant_id"`
	QuantityChange int       `json:"quantity_change"`
	Reason         string    `json:"reason"`
	OrderID        string    `json:"order_id,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type lowStockEvent struct {
	Type              string `json:"type"`
	VariantID         string `json:"variant_id"`
	SKU               string `json:"sku"`
	Available         int    `json:"available"`
	MinimumStockLevel int    `json:"minimum_stock_level"`
}

func (p *KafkaPublisher) LedgerAppended(ctx context.Context, e domain.LedgerEntry) {
	p.send(ctx, e.VariantID, ledgerEvent{
		Type:           "ledger_appended",
		LogID:          e.ID,
		VariantID:      e.VariantID,
		QuantityChange: e.QuantityChange,
		Reason:         string(e.Reason),
		OrderID:        e.OrderID,
		UserID:         e.UserID,
		CreatedAt:      e.CreatedAt,
	})
}

func (p *KafkaPublisher) LowStock(ctx context.Context, v domain.VariantStock) {
	p.send(ctx, v.VariantID, lowStockEvent{
		Type:              "low_stock",
		VariantID:         v.VariantID,
		SKU:               v.SKU,
		Available:         v.Available(),
		MinimumStockLevel: v.MinimumStockLevel,
	})
}

func (p *KafkaPublisher) send(ctx context.Context, key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn("marshal stock event", zap.Error(err))
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		p.logger.Warn("publish stock event",
			zap.String("variant_id", key),
			zap.Error(err),
		)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
