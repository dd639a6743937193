package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/database"
)

// AuditSink persists audit entries.
type AuditSink interface {
	Insert(ctx context.Context, userID uint64, action, details string, at time.Time) error
}

// errBadPayload marks messages that can never be processed.
var errBadPayload = errors.New("bad audit payload")

// StartAuditConsumer consumes the audit queue and writes each event through
// sink.  It reconnects with exponential backoff until ctx is cancelled.
// Malformed messages and rows the database refuses outright are rejected
// without requeue; other storage failures are requeued.
func StartAuditConsumer(ctx context.Context, url string, sink AuditSink, log *zap.Logger) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := Dial(url)
		if err != nil {
			log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("audit consumer: loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

// DialTimeout bounds the TCP connect and AMQP handshake of Dial.
const DialTimeout = 2 * time.Second

// Dial opens a broker connection that gives up after DialTimeout instead of
// the library's 30 second default.
func Dial(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(DialTimeout),
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink AuditSink, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("audit consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(AuditQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			err := handleAuditMessage(ctx, d.Body, sink)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case errors.Is(err, errBadPayload):
				log.Warn("audit consumer: rejecting message", zap.Error(err))
				_ = d.Nack(false, false)
			default:
				log.Error("audit consumer: store failed", zap.Error(err))
				_ = d.Nack(false, true)
			}
		}
	}
}

func handleAuditMessage(ctx context.Context, body []byte, sink AuditSink) error {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	ev.Action = strings.TrimSpace(ev.Action)
	if ev.Action == "" {
		return fmt.Errorf("%w: missing action", errBadPayload)
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sink.Insert(sctx, ev.UserID, ev.Action, ev.Details, ev.OccurredAt); err != nil {
		if database.IsPermanent(err) {
			return fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return err
	}
	return nil
}
