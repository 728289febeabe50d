package payment

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// StatusChanged is published after an authoritative status write.
type StatusChanged struct {
	OrderID    int64     `json:"order_id"`
	Status     string    `json:"status"`
	PaymentRef string    `json:"payment_ref,omitempty"`
	EventID    string    `json:"event_id,omitempty"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

const statusChangedEventType = "order.status_changed"

type Publisher interface {
	Publish(ctx context.Context, msg StatusChanged) error
}

// NopPublisher drops messages; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, StatusChanged) error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return &KafkaPublisher{writer: w}
}

// NewPublisher returns a Kafka publisher, or a NopPublisher when brokers is
// empty.
func NewPublisher(topic string, brokers []string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(topic, brokers...)
}

// Publish keys messages by order id so one order's changes stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, msg StatusChanged) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(msg.OrderID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(statusChangedEventType)},
		},
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
