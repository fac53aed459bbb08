package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"bookstore/internal/models"

	"github.com/IBM/sarama"
)

// PaymentEvent is published on the payments topic, keyed by order id.
type PaymentEvent struct {
	Type              string    `json:"type"`
	PaymentID         string    `json:"paymentId,omitempty"`
	OrderID           string    `json:"orderId"`
	OrderTrackingID   string    `json:"orderTrackingId,omitempty"`
	MerchantReference string    `json:"merchantReference,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	BookID            string    `json:"bookId,omitempty"`
	Status            string    `json:"status,omitempty"`
	Amount            string    `json:"amount,omitempty"`
	Currency          string    `json:"currency,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	OccurredAt        time.Time `json:"occurredAt"`
}

func newPaymentEvent(eventType string, p *models.Payment, at time.Time) PaymentEvent {
	return PaymentEvent{
		Type:              eventType,
		PaymentID:         p.ID,
		OrderID:           p.OrderID,
		OrderTrackingID:   p.OrderTrackingID,
		MerchantReference: p.MerchantReference,
		UserID:            p.UserID,
		BookID:            p.BookID,
		Status:            p.Status,
		Amount:            p.Amount.String(),
		Currency:          p.Currency,
		OccurredAt:        at,
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, e PaymentEvent) error
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PaymentEvent) error { return nil }

// KafkaPublisher sends events through a synchronous sarama producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = "bookstore-payments"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Timeout = 5 * time.Second
	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (k *KafkaPublisher) Publish(ctx context.Context, e PaymentEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(e.OrderID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
		},
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return err
	}
	log.Printf("[KAFKA] %s order_id=%s partition=%d offset=%d", e.Type, e.OrderID, partition, offset)
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

// publish sends e and only logs a failure; events never fail a payment operation.
func publish(ctx context.Context, p EventPublisher, e PaymentEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Printf("[KAFKA] publish %s order_id=%s failed: %v", e.Type, e.OrderID, err)
	}
}
