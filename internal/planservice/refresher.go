package planservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/bujo/internal/apperr"
)

// RequestRefresh asks RunRefresher for a refresh. Bursts of requests
// collapse into one refresh after the quiet period.
func (s *Service) RequestRefresh() {
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// RunRefresher serves RequestRefresh until ctx is cancelled. A refresh that
// finds another one running is retried after the next quiet period.
func (s *Service) RunRefresher(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(s.cfg.QuietPeriod)
			fire = timer.C
		} else {
			timer.Reset(s.cfg.QuietPeriod)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-s.requests:
			schedule()

		case <-fire:
			_, err := s.Refresh(ctx)
			switch {
			case err == nil:
			case errors.Is(err, apperr.ErrRefreshInProgress):
				schedule()
			case ctx.Err() != nil:
				return nil
			default:
				s.logger.Warn("plan: debounced refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Stamp returns a value that changes whenever the underlying documents do.
type Stamp func(ctx context.Context) (string, error)

// Poll calls stamp every interval and requests a refresh when its value
// changes, until ctx is cancelled.
func (s *Service) Poll(ctx context.Context, interval time.Duration, stamp Stamp) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last, err := stamp(ctx)
	if err != nil {
		s.logger.Warn("plan: poll failed", slog.String("error", err.Error()))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur, err := stamp(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("plan: poll failed", slog.String("error", err.Error()))
				}
				continue
			}
			if cur != last {
				last = cur
				s.RequestRefresh()
			}
		}
	}
}
