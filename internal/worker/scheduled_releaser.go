package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"meshline-backend/internal/realtime"
	"meshline-backend/pkg/metrics"
)

// ScheduledReleaser promotes due scheduled messages into their
// conversations. Delivery is at-least-once: the broadcast happens before
// the scheduled marker is cleared, so a crash between the two replays the
// message on the next tick rather than losing it.
type ScheduledReleaser struct {
	store     ScheduledStore
	publisher ConversationPublisher
	interval  time.Duration
	metrics   *metrics.Metrics // may be nil
	log       *zap.Logger
}

func NewScheduledReleaser(store ScheduledStore, publisher ConversationPublisher, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *ScheduledReleaser {
	return &ScheduledReleaser{
		store:     store,
		publisher: publisher,
		interval:  interval,
		metrics:   m,
		log:       log,
	}
}

// Run blocks until the context is cancelled
func (w *ScheduledReleaser) Run(ctx context.Context) {
	w.log.Info("scheduled release worker started", zap.Duration("interval", w.interval))
	runLoop(ctx, w.interval, w.tick)
	w.log.Info("scheduled release worker stopped")
}

func (w *ScheduledReleaser) tick(ctx context.Context) {
	start := time.Now()
	err := w.release(ctx, start)
	if w.metrics != nil {
		w.metrics.RecordWorkerTick("scheduled_releaser", time.Since(start), err)
	}
	if err != nil {
		w.log.Error("scheduled release tick failed", zap.Error(err))
	}
}

func (w *ScheduledReleaser) release(ctx context.Context, now time.Time) error {
	due, err := w.store.DueScheduled(ctx, now)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	for _, msg := range due {
		wire := w.publisher.RenderMessage(ctx, msg)
		w.publisher.Broadcast(ctx, msg.ConversationID, realtime.NewEvent(realtime.EventReceiveMessage, wire))
	}

	if err := w.store.ClearScheduled(ctx, due); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.RecordMessagesReleased(len(due))
	}
	w.log.Info("released scheduled messages", zap.Int("count", len(due)))
	return nil
}
