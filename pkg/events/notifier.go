package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tablemapper/pkg/mapper"
)

// Notifier - наблюдатель маппера, отправляющий изменения в Publisher.
// Select и неудачные операции не публикуются. Ошибка публикации только
// логируется: операция над таблицей к этому моменту уже выполнена.
type Notifier struct {
	publisher Publisher
	logger    zerolog.Logger
}

var _ mapper.Observer = (*Notifier)(nil)

// NewNotifier создает Notifier
func NewNotifier(p Publisher, logger zerolog.Logger) *Notifier {
	return &Notifier{publisher: p, logger: logger}
}

// Observe реализует mapper.Observer
func (n *Notifier) Observe(ctx context.Context, ev mapper.Event) {
	if ev.Op == mapper.OpSelect || ev.Failed() {
		return
	}

	change := NewChangeEvent(ev)
	if err := n.publisher.Publish(ctx, change); err != nil {
		n.logger.Error().
			Err(err).
			Str("table", ev.Table).
			Str("op", string(ev.Op)).
			Str("event_id", change.ID).
			Msg("failed to publish change event")
	}
}
