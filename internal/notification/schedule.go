package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DailyAt is a wall-clock time of day in the dispatcher's timezone.
type DailyAt struct {
	Hour   int
	Minute int
}

// ParseDailyAt reads an "HH:MM" time of day.
func ParseDailyAt(s string) (DailyAt, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return DailyAt{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return DailyAt{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// Next returns the first occurrence strictly after now.
func (a DailyAt) Next(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), a.Hour, a.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, a.Hour, a.Minute, 0, 0, loc)
	}
	return next
}

// RunReminders sends reminders once a day at the given time until ctx is
// cancelled. The wait is recomputed from the clock after every run, so a
// restart keeps the same daily slot.
func (d *Dispatcher) RunReminders(ctx context.Context, at DailyAt) error {
	for {
		next := at.Next(d.now(), d.loc)
		d.logger.InfoContext(ctx, "next reminder run scheduled", slog.Time("at", next))

		select {
		case <-ctx.Done():
			return nil
		case <-d.after(next.Sub(d.now())):
		}

		if _, err := d.SendReminders(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.ErrorContext(ctx, "reminder run failed", slog.Any("error", err))
		}
	}
}
