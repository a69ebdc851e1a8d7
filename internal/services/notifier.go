package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskreminder/internal/infrastructure/alarm"
)

// Notifier delivers a fired alarm to the user.
type Notifier interface {
	Notify(ctx context.Context, a alarm.Alarm) error
}

// LogNotifier writes reminders to the structured log. It stands in for a push
// or mail channel.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, a alarm.Alarm) error {
	n.logger.Info(a.Title,
		zap.Int64("task_id", a.TaskID),
		zap.String("body", a.Body),
		zap.String("expanded_body", a.ExpandedBody),
		zap.Time("wake_at", a.WakeAt),
		zap.String("kind", string(a.Kind)),
	)
	return nil
}
