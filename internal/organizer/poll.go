package organizer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/apperr"
)

// Poll runs a pass immediately and then once per interval until ctx is done.
func (o *Organizer) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	o.logger.Info("organizer: polling", slog.Duration("interval", interval))

	o.runLogged(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("organizer: polling stopped")
			return nil
		case <-ticker.C:
			o.runLogged(ctx)
		}
	}
}

// runLogged runs one pass and reports whether another one is still needed
// because a pass was already in progress.
func (o *Organizer) runLogged(ctx context.Context) (busy bool) {
	_, err := o.RunPass(ctx)
	switch {
	case err == nil, ctx.Err() != nil:
	case errors.Is(err, apperr.ErrBusy):
		o.logger.Debug("organizer: pass already running")
		return true
	default:
		o.logger.Error("organizer: pass failed", slog.String("error", err.Error()))
	}
	return false
}
