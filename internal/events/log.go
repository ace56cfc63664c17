package events

import (
	"context"
	"log/slog"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// LogPublisher writes pipeline events to the log. Backlog failures are logged
// at error level so they surface as a health signal.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With(slog.String("component", "events"))}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) {
	attrs := []slog.Attr{
		slog.String("type", string(event.Type)),
		slog.Time("at", event.At),
	}

	if event.UploadID != "" {
		attrs = append(attrs, slog.String("upload_id", event.UploadID))
	}
	if event.From != "" {
		attrs = append(attrs, slog.String("from", string(event.From)))
	}
	if event.To != "" {
		attrs = append(attrs, slog.String("to", string(event.To)))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}

	switch event.Type {
	case domain.EventBacklogStalled, domain.EventBacklogDrained, domain.EventRecoveryFailed:
		attrs = append(attrs, slog.Int("pending", event.Pending))
	}

	p.log.LogAttrs(ctx, level(event.Type), "event", attrs...)
}

func level(t domain.EventType) slog.Level {
	switch t {
	case domain.EventRecoveryFailed:
		return slog.LevelError
	case domain.EventBacklogStalled:
		return slog.LevelWarn
	case domain.EventPhaseChanged:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
