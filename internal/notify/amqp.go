package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	maxDialRetries = 5
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events as persistent JSON messages to a topic
// exchange, routed by event type.
type AMQPPublisher struct {
	exchange string
	conn     *amqp.Connection

	mu sync.Mutex // amqp channels are not safe for concurrent publishes
	ch channel
}

// NewAMQPPublisher wraps an already-open channel. Used by DialAMQP and tests.
func NewAMQPPublisher(ch channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

// DialAMQP connects to url, declares a durable topic exchange and returns a
// publisher bound to it. Connection attempts back off between retries.
func DialAMQP(ctx context.Context, url, exchange string, log *slog.Logger) (*AMQPPublisher, error) {
	delay := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxDialRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			p, err := openPublisher(conn, exchange)
			if err == nil {
				log.Info("amqp connected", "exchange", exchange, "attempt", attempt)
				return p, nil
			}
			_ = conn.Close()
			return nil, err
		}
		lastErr = err
		log.Warn("amqp connection attempt failed", "attempt", attempt, "max", maxDialRetries, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay = min(delay*2, 15*time.Second)
		}
	}
	return nil, fmt.Errorf("notify.DialAMQP: %d attempts: %w", maxDialRetries, lastErr)
}

func openPublisher(conn *amqp.Connection, exchange string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("notify.DialAMQP: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("notify.DialAMQP: declare exchange %q: %w", exchange, err)
	}
	p := NewAMQPPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

// Notify publishes e with its type as routing key.
func (p *AMQPPublisher) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("notify.AMQPPublisher.Notify: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, string(e.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID.String(),
			Type:         string(e.Type),
			Timestamp:    e.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("notify.AMQPPublisher.Notify: publish %s: %w", e.Type, err)
	}
	return nil
}

// Close releases the channel and, when the publisher owns it, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
