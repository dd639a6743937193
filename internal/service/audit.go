package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/community-commons/internal/queue"
)

// AuditStore writes audit rows directly.
type AuditStore interface {
	Insert(ctx context.Context, userID uint64, action, details string, at time.Time) error
}

// AuditRecorder records audit entries.  With a publisher the entry goes to
// the audit queue and the audit-consumer command stores it; otherwise, or
// when publishing fails, it is written straight to the store.  Failures are
// logged and never returned.
type AuditRecorder struct {
	pub   *Publisher
	store AuditStore
	log   *zap.Logger
	now   func() time.Time
}

func NewAuditRecorder(pub *Publisher, store AuditStore, log *zap.Logger) *AuditRecorder {
	return &AuditRecorder{pub: pub, store: store, log: log, now: time.Now}
}

// Record stores one action.  userID 0 records an anonymous action.
func (a *AuditRecorder) Record(ctx context.Context, userID uint64, action, details string) {
	ev := queue.AuditEvent{UserID: userID, Action: action, Details: details, OccurredAt: a.now().UTC()}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	if a.pub.Enabled() {
		if err := a.pub.Publish(ctx, queue.AuditQueue, ev); err == nil {
			return
		}
	}
	if a.store == nil {
		return
	}
	if err := a.store.Insert(ctx, ev.UserID, ev.Action, ev.Details, ev.OccurredAt); err != nil {
		a.log.Warn("audit write failed", zap.String("action", action), zap.Uint64("user_id", userID), zap.Error(err))
	}
}
