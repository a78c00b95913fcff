// Package events publishes domain events to an AMQP topic exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/skillxpress/skillxpress/internal/logger"
)

// Routing keys of published events.
const (
	SkillsScored     = "skills.scored"
	RoadmapGenerated = "roadmap.generated"
)

// Envelope wraps every event body.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope encodes payload as the data of an event of the given type.
func NewEnvelope(eventType string, payload any, at time.Time) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event %s: %w", eventType, err)
	}
	return &Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Data:       data,
	}, nil
}

// Publisher owns one AMQP connection and a channel guarded by a mutex,
// since AMQP channels must not be shared between goroutines.
type Publisher struct {
	url      string
	exchange string
	log      *logger.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string, log *logger.Logger) (*Publisher, error) {
	if exchange == "" {
		return nil, errors.New("amqp exchange is empty")
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Publisher{url: url, exchange: exchange, log: log.With("component", "events")}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("error dialling rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("error declaring exchange %s: %w", p.exchange, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Publish sends payload under routingKey. A closed connection is redialled once.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := NewEnvelope(routingKey, payload, time.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         routingKey,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}
	err = p.ch.Publish(p.exchange, routingKey, false, false, msg)
	if err == nil {
		return nil
	}
	if !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}

	p.log.Warn("amqp channel closed, reconnecting", "routing_key", routingKey)
	p.closeLocked()
	if err := p.connect(); err != nil {
		return err
	}
	if err := p.ch.Publish(p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
