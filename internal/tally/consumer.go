package tally

import (
	"context"
	"log/slog"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/metrics"
	"schoolattendance/internal/queue"
)

// Consume applies every event read from q to t until ctx is done or the queue closes.
// Malformed messages are logged and skipped.
func Consume(ctx context.Context, q queue.Queue, t Tally, log *slog.Logger) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		evt, err := attendance.DecodeEvent(msg)
		if err != nil {
			metrics.EventsConsumed.WithLabelValues(msg.Type, "invalid").Inc()
			log.Warn("skip event", "type", msg.Type, "err", err)
			continue
		}
		if err := t.Apply(ctx, evt); err != nil {
			metrics.EventsConsumed.WithLabelValues(evt.Type, "error").Inc()
			log.Error("apply event", "type", evt.Type, "checkin_id", evt.CheckInID, "err", err)
			continue
		}
		metrics.EventsConsumed.WithLabelValues(evt.Type, "applied").Inc()
		log.Debug("event applied", "type", evt.Type, "checkin_id", evt.CheckInID, "date", evt.Date)
	}
	return nil
}
