package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"guestfeedback/feedback-service/internal/app/feedback/entity"
	"guestfeedback/pkg/metrics"
)

const (
	serviceName = "feedback-service"

	HeaderEventType = "event_type"
	HeaderSource    = "source"
)

// KafkaProducer публикует события отзывов в топик feedback_events.
// Ключ сообщения - ID записи, поэтому события одной записи попадают в одну партицию.
type KafkaProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaProducer{writer: writer, topic: topic}
}

// PublishEvent ждёт подтверждения брокера; ctx ограничивает ожидание
func (p *KafkaProducer) PublishEvent(ctx context.Context, event entity.FeedbackEvent) error {
	message, err := eventMessage(event)
	if err != nil {
		metrics.RecordKafkaError(serviceName, p.topic, "marshal")
		return err
	}

	start := time.Now()
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		metrics.RecordKafkaError(serviceName, p.topic, "produce")
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}

	metrics.RecordKafkaMessageProduced(serviceName, p.topic, time.Since(start))
	return nil
}

// eventMessage собирает сообщение: тип события дублируется в заголовке,
// чтобы потребители могли фильтровать без разбора тела
func eventMessage(event entity.FeedbackEvent) (kafka.Message, error) {
	if event.ID == "" || event.EventType == "" {
		return kafka.Message{}, fmt.Errorf("incomplete feedback event: type=%q id=%q", event.EventType, event.ID)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal feedback event: %w", err)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
		Time:  ts,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderSource, Value: []byte(serviceName)},
		},
	}, nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
