// Package events publishes arena events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/moltcourt/moltcourt/internal/arena"
)

// HeaderEventType carries the event type on every record.
const HeaderEventType = "moltcourt-event"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes arena events to one topic, keyed by fight id so a
// fight's events stay ordered within a partition.
type KafkaPublisher struct {
	topic  string
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	brokers = cleanBrokers(brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka: topic is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return &KafkaPublisher{topic: topic, writer: w}, nil
}

// Handle encodes evt and writes it. It matches the bus handler signature.
func (p *KafkaPublisher) Handle(ctx context.Context, evt arena.Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:     []byte(evt.FightID),
		Value:   value,
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte(evt.Type)}},
		Time:    evt.At,
	}

	var writeErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if writeErr = p.writer.WriteMessages(ctx, msg); writeErr == nil {
			return nil
		}
		slog.Debug("kafka publish retry", "topic", p.topic, "attempt", attempt+1, "error", writeErr)
	}
	return fmt.Errorf("kafka publish to %s: %w", p.topic, writeErr)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Tail reads events from topic and hands each to fn until ctx is done.
// An empty groupID reads partition 0 from the latest offset.
func Tail(ctx context.Context, brokers []string, topic, groupID string, fn func(arena.Event)) error {
	brokers = cleanBrokers(brokers)
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	cfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	}
	if groupID == "" {
		cfg.StartOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(cfg)
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka read: %w", err)
		}
		evt, err := Decode(msg.Value)
		if err != nil {
			slog.Warn("skipping undecodable event", "topic", topic, "offset", msg.Offset, "error", err)
			continue
		}
		fn(evt)
	}
}

// Decode parses one record value.
func Decode(value []byte) (arena.Event, error) {
	var evt arena.Event
	if err := json.Unmarshal(value, &evt); err != nil {
		return arena.Event{}, err
	}
	if evt.Type == "" {
		return arena.Event{}, errors.New("event without type")
	}
	return evt, nil
}

func cleanBrokers(in []string) []string {
	var out []string
	for _, b := range in {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
