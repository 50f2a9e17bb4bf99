package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"meshline-backend/internal/realtime"
	"meshline-backend/pkg/constants"
	"meshline-backend/pkg/metrics"
)

// SelfDestructSweeper retires viewed self-destructing messages once their
// expiry passes. The deletion broadcast precedes the tombstone write, so a
// crash in between repeats the broadcast on the next tick; the tombstone
// keeps a settled message out of every later scan.
type SelfDestructSweeper struct {
	store     EphemeralStore
	publisher ConversationPublisher
	interval  time.Duration
	metrics   *metrics.Metrics // may be nil
	log       *zap.Logger
}

func NewSelfDestructSweeper(store EphemeralStore, publisher ConversationPublisher, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *SelfDestructSweeper {
	return &SelfDestructSweeper{
		store:     store,
		publisher: publisher,
		interval:  interval,
		metrics:   m,
		log:       log,
	}
}

// Run blocks until the context is cancelled
func (w *SelfDestructSweeper) Run(ctx context.Context) {
	w.log.Info("self destruct sweeper started", zap.Duration("interval", w.interval))
	runLoop(ctx, w.interval, w.tick)
	w.log.Info("self destruct sweeper stopped")
}

func (w *SelfDestructSweeper) tick(ctx context.Context) {
	start := time.Now()
	err := w.sweep(ctx, start)
	if w.metrics != nil {
		w.metrics.RecordWorkerTick("self_destruct_sweeper", time.Since(start), err)
	}
	if err != nil {
		w.log.Error("self destruct sweep failed", zap.Error(err))
	}
}

func (w *SelfDestructSweeper) sweep(ctx context.Context, now time.Time) error {
	expired, err := w.store.ExpiredEphemeral(ctx, now)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	for _, msg := range expired {
		ev := realtime.NewEvent(realtime.EventMessageDeleted, realtime.MessageDeletedPayload{
			MessageID:      msg.MessageID,
			ConversationID: msg.ConversationID,
			Reason:         constants.MessageDeleteReasonSelfDestruct,
		})
		w.publisher.Broadcast(ctx, msg.ConversationID, ev)
	}

	if err := w.store.MarkSelfDestructed(ctx, expired); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.RecordMessagesSelfDestructed(len(expired))
	}
	w.log.Info("swept self destructed messages", zap.Int("count", len(expired)))
	return nil
}
