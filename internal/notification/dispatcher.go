package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/kafka"
)

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type TicketSource interface {
	TicketsDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.TicketDetail, error)
}

var errNoSink = errors.New("notification sink is not configured")

type Dispatcher struct {
	formatter   *Formatter
	chatID      string
	loc         *time.Location
	publisher   Publisher
	topic       string
	sink        Sink
	sendTimeout time.Duration
	tickets     TicketSource
	now         func() time.Time
	after       func(time.Duration) <-chan time.Time
	logger      *slog.Logger
}

type Option func(*Dispatcher)

// WithPublisher routes change alerts through the job queue instead of
// calling the sink in-process.
func WithPublisher(p Publisher, topic string) Option {
	return func(d *Dispatcher) {
		d.publisher = p
		d.topic = topic
	}
}

func WithSink(s Sink, sendTimeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.sink = s
		d.sendTimeout = sendTimeout
	}
}

func WithTickets(src TicketSource) Option {
	return func(d *Dispatcher) { d.tickets = src }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithTimer replaces time.After in the reminder schedule.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(d *Dispatcher) { d.after = after }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

func NewDispatcher(formatter *Formatter, chatID string, loc *time.Location, opts ...Option) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	d := &Dispatcher{
		formatter:   formatter,
		chatID:      chatID,
		loc:         loc,
		sendTimeout: 10 * time.Second,
		now:         time.Now,
		after:       time.After,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NotifyDepartureChanged emits one schedule-change alert.
func (d *Dispatcher) NotifyDepartureChanged(ctx context.Context, change domain.DepartureChange) error {
	job := kafka.NewNotificationJob(kafka.JobDepartureChanged, change.FlightID, d.chatID, d.formatter.DepartureChanged(change))

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, d.topic, job.ID, job); err != nil {
			return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
		}
		d.logger.InfoContext(ctx, "notification job published",
			slog.String("job_id", job.ID), slog.String("kind", string(job.Kind)), slog.Int64("flight_id", job.FlightID))
		return nil
	}
	return d.Deliver(ctx, job)
}

// Deliver sends a job's text to the sink within the send timeout.
func (d *Dispatcher) Deliver(ctx context.Context, job kafka.NotificationJob) error {
	if d.sink == nil {
		return errNoSink
	}
	chatID := job.ChatID
	if chatID == "" {
		chatID = d.chatID
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.sink.Send(sendCtx, chatID, job.Text); err != nil {
		return fmt.Errorf("failed to deliver job %s: %w", job.ID, err)
	}
	return nil
}

// TomorrowRange is the calendar day after now in the dispatcher's timezone,
// as [start, end).
func (d *Dispatcher) TomorrowRange() (time.Time, time.Time) {
	local := d.now().In(d.loc)
	start := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, d.loc)
	return start, start.AddDate(0, 0, 1)
}

// SendReminders sends one reminder per ticket departing tomorrow. Failed
// deliveries are logged and do not stop the scan.
func (d *Dispatcher) SendReminders(ctx context.Context) (int, error) {
	if d.tickets == nil {
		return 0, errors.New("reminder ticket source is not configured")
	}
	from, to := d.TomorrowRange()

	tickets, err := d.tickets.TicketsDepartingBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to load tickets departing tomorrow: %w", err)
	}

	sent := 0
	for _, t := range tickets {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		job := kafka.NewNotificationJob(kafka.JobReminder, t.FlightID, d.chatID, d.formatter.Reminder(t))
		if err := d.Deliver(ctx, job); err != nil {
			d.logger.WarnContext(ctx, "reminder delivery failed",
				slog.String("job_id", job.ID), slog.Int64("flight_id", t.FlightID), slog.Int64("ticket_id", t.ID), slog.Any("error", err))
			continue
		}
		sent++
	}

	d.logger.InfoContext(ctx, "reminders sent", slog.Int("tickets", len(tickets)), slog.Int("sent", sent))
	return sent, nil
}
