// Package worker applies queued check-in and check-out messages to
// attendance documents.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"faceattend/internal/attendance"
	"faceattend/internal/metrics"
	"faceattend/internal/queue"
)

// Worker consumes a queue on a single goroutine.
type Worker struct {
	queue    queue.Queue
	recorder *attendance.Recorder
	log      *zap.Logger
}

// New creates a worker.
func New(q queue.Queue, recorder *attendance.Recorder, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: q, recorder: recorder, log: logger}
}

// Run processes messages until ctx is done or the queue closes.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.queue.Consume(ctx)
	if err != nil {
		return err
	}
	w.log.Info("worker started, waiting for messages")
	for msg := range messages {
		w.Handle(ctx, msg)
	}
	w.log.Info("worker stopped")
	return nil
}

// Handle applies one message. Failures are logged and counted; messages are
// not retried.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) {
	log := w.log.With(
		zap.String("message_id", msg.ID),
		zap.String("type", msg.Type),
		zap.String("user_email", msg.UserEmail),
	)
	switch msg.Type {
	case queue.TypeCheckIn:
		entry, added, err := w.recorder.CheckIn(ctx, msg.UserEmail, msg.At)
		if err != nil {
			metrics.CheckIns.WithLabelValues(msg.Type, "error").Inc()
			log.Error("check-in failed", zap.Error(err))
			return
		}
		result := "recorded"
		if !added {
			result = "duplicate"
		}
		metrics.CheckIns.WithLabelValues(msg.Type, result).Inc()
		log.Debug("check-in applied", zap.String("date", entry.Date), zap.Bool("added", added))

	case queue.TypeCheckOut:
		_, err := w.recorder.CheckOut(ctx, msg.UserEmail, msg.At)
		switch {
		case errors.Is(err, attendance.ErrNoEntryToday):
			metrics.CheckIns.WithLabelValues(msg.Type, "no_entry").Inc()
			log.Warn("check-out without check-in", zap.Time("at", msg.At))
		case err != nil:
			metrics.CheckIns.WithLabelValues(msg.Type, "error").Inc()
			log.Error("check-out failed", zap.Error(err))
		default:
			metrics.CheckIns.WithLabelValues(msg.Type, "recorded").Inc()
		}

	default:
		metrics.CheckIns.WithLabelValues(msg.Type, "unknown").Inc()
		log.Warn("unknown message type")
	}
}
