package notify

import (
	"context"
	"errors"

	apperrors "exchange-matcher/internal/common/errors"
	"exchange-matcher/internal/common/logger"
	"exchange-matcher/internal/matching"
)

// Channel is a named notifier.
type Channel interface {
	matching.Notifier
	Name() string
}

// Fanout delivers to every channel. A failing channel does not stop the
// others; failures come back joined.
type Fanout struct {
	channels []Channel
	logger   logger.Logger
}

func NewFanout(log logger.Logger, channels ...Channel) *Fanout {
	return &Fanout{channels: channels, logger: log.Named("notify")}
}

func (f *Fanout) Len() int { return len(f.channels) }

func (f *Fanout) MatchesStored(ctx context.Context, source matching.Listing, matches []matching.Match) error {
	if len(matches) == 0 {
		return nil
	}
	var errs []error
	for _, ch := range f.channels {
		if err := ch.MatchesStored(ctx, source, matches); err != nil {
			f.logger.Warn("notification channel failed", map[string]interface{}{
				"channel":   ch.Name(),
				"listingId": source.ID,
				"error":     err,
			})
			errs = append(errs, apperrors.NewNotificationFailedError(ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}
