// Package events publishes sale lifecycle events for downstream consumers
// (reporting, fiscal export). Publishing is best effort: the sale is already
// committed when an event goes out.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tebaspos/backend/internal/domain"
	"tebaspos/backend/internal/logger"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.SaleEvent) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return &KafkaPublisher{writer: writer}
}

// Publish keys messages by store; the hash balancer pins a store to one
// partition, so its events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.SaleEvent) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	logger.L().Debug("published sale event",
		zap.String("type", event.Type),
		zap.String("store_id", event.StoreID),
		zap.String("sale_id", event.SaleID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Message encodes an event as the kafka message the publisher writes.
func Message(event domain.SaleEvent) (kafka.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return kafka.Message{
		Key:   []byte(event.StoreID),
		Value: body,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}, nil
}

// Decode is the inverse of Message.
func Decode(msg kafka.Message) (domain.SaleEvent, error) {
	var event domain.SaleEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.SaleEvent{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return event, nil
}

type Noop struct{}

func (Noop) Publish(context.Context, domain.SaleEvent) error { return nil }
func (Noop) Close() error                                   { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []domain.SaleEvent
}

func (r *Recorder) Publish(_ context.Context, event domain.SaleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []domain.SaleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SaleEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Consumer tails the sales topic; used by the posctl "events tail" command.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	return &Consumer{reader: reader}
}

// Tail hands every event to fn until ctx is done. Messages that fail to
// decode are committed and skipped.
func (c *Consumer) Tail(ctx context.Context, fn func(domain.SaleEvent) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		event, err := Decode(msg)
		if err != nil {
			logger.L().Warn("skipping undecodable sale event", zap.Int64("offset", msg.Offset), zap.Error(err))
		} else if err := fn(event); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.L().Warn("commit sale event failed", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
