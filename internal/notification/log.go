package notification

import (
	"context"
	"log/slog"
)

// LogNotifier пишет уведомления в лог. Канал по умолчанию, когда
// брокер и бот не настроены.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", string(msg.Kind)),
		slog.String("reservation_id", msg.ReservationID.String()),
		slog.String("code", msg.Code),
		slog.String("title", msg.Title),
	)
	return nil
}
