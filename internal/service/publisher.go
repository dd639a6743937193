// Package service publishes domain events to RabbitMQ and records the audit
// trail.  Publishing failures are logged and returned so callers can carry
// on without interrupting the request.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/queue"
)

// errBrokerDown is returned while the publisher waits out a failed dial.
var errBrokerDown = errors.New("broker unavailable")

// redialAfter is how long Publish fails fast after a dial error.
const redialAfter = 30 * time.Second

// Publisher keeps one broker connection and channel open and re-dials when
// either has closed.  After a failed dial it refuses to dial again for
// redialAfter, so callers fall back at once.  A nil *Publisher discards
// every event.
type Publisher struct {
	url  string
	log  *zap.Logger
	dial func(url string) (*amqp.Connection, error)
	now  func() time.Time

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	declared  map[string]bool
	downUntil time.Time
}

// NewPublisher returns nil when url is empty, which disables publishing.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	if url == "" {
		return nil
	}
	return &Publisher{url: url, log: log, dial: queue.Dial, now: time.Now, declared: map[string]bool{}}
}

// Enabled reports whether events actually leave the process.
func (p *Publisher) Enabled() bool { return p != nil }

// channel returns an open channel, dialling if needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	if p.now().Before(p.downUntil) {
		return nil, errBrokerDown
	}
	conn, err := p.dial(p.url)
	if err != nil {
		p.downUntil = p.now().Add(redialAfter)
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.declared = map[string]bool{}
	return ch, nil
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

// Publish marshals v and publishes it persistently to the named durable
// queue.
func (p *Publisher) Publish(ctx context.Context, queueName string, v interface{}) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		if !errors.Is(err, errBrokerDown) {
			p.log.Warn("rabbitmq unavailable", zap.String("queue", queueName), zap.Error(err))
		}
		return err
	}
	if !p.declared[queueName] {
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
			p.closeLocked()
			return fmt.Errorf("declare %s: %w", queueName, err)
		}
		p.declared[queueName] = true
	}
	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		p.log.Warn("rabbitmq publish failed", zap.String("queue", queueName), zap.Error(err))
		return fmt.Errorf("publish %s: %w", queueName, err)
	}
	return nil
}

// VerificationRequested hands a verification token to the mailer queue.
func (p *Publisher) VerificationRequested(ctx context.Context, ev queue.VerificationRequestedEvent) error {
	return p.Publish(ctx, queue.VerificationQueue, ev)
}

// ResourceRequested notifies owners about a new request.
func (p *Publisher) ResourceRequested(ctx context.Context, ev queue.ResourceRequestedEvent) error {
	return p.Publish(ctx, queue.ResourceRequestedQueue, ev)
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
}
