// Package events publishes authentication domain events to RabbitMQ.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	PrincipalSignedUp       = "principal.signed_up"
	PrincipalPasswordChange = "principal.password_changed"
	PrincipalDeactivated    = "principal.deactivated"
	PrincipalRoleChanged    = "principal.role_changed"
)

type Event struct {
	Type        string    `json:"type"`
	PrincipalID string    `json:"principalId"`
	At          time.Time `json:"at"`
	Detail      string    `json:"detail,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event. Used when no broker URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// AMQP publishes persistent JSON messages to a durable topic exchange,
// routed by event type.
type AMQP struct {
	exchange string
	log      *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAMQP(url, exchange string, log *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return &AMQP{exchange: exchange, log: log, conn: conn, ch: ch}, nil
}

func (p *AMQP) Publish(ctx context.Context, e Event) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.At,
		Body:         body,
	})
	if err != nil {
		p.log.Warn("amqp publish", zap.String("type", e.Type), zap.Error(err))
	}
	return err
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

// Encode is the wire form of an event.
func Encode(e Event) ([]byte, error) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return json.Marshal(e)
}

// New dials the broker when url is set and falls back to Nop otherwise or
// when the broker is unreachable.
func New(url, exchange string, log *zap.Logger) Publisher {
	if url == "" {
		return Nop{}
	}
	p, err := DialAMQP(url, exchange, log)
	if err != nil {
		log.Warn("events disabled", zap.Error(err))
		return Nop{}
	}
	return p
}
