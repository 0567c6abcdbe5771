package memory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
)

// NoopPublisher logs events instead of sending them. Used when no broker
// is configured.
type NoopPublisher struct {
	log zerolog.Logger
}

func NewNoopPublisher(log zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{log: log}
}

func (p *NoopPublisher) PublishAccountEvent(ctx context.Context, evt account.Event) error {
	p.log.Debug().
		Str("event", string(evt.Type)).
		Int64("user_id", evt.UserID).
		Msg("noop publisher: event dropped")
	return nil
}
