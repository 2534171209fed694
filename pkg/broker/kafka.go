package broker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewProducer(cfg *KafkaConfig) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

// Publish writes msg keyed by msg.Key so events of one order stay on one partition.
func (p *KafkaProducer) Publish(ctx context.Context, msg Message) error {
	return p.writer.WriteMessages(ctx, toKafka(msg))
}

func toKafka(msg Message) kafka.Message {
	return kafka.Message{Key: []byte(msg.Key), Value: msg.Value}
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg *KafkaConfig) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
	}
}

func (c *KafkaConsumer) ReadMessage(ctx context.Context) (Message, error) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return fromKafka(m), nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

// fromKafka drops partition and offset; kafka has no per-message priority.
func fromKafka(m kafka.Message) Message {
	return Message{Key: string(m.Key), Value: m.Value}
}
