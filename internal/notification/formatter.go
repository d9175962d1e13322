package notification

import (
	"strings"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
)

const timeLayout = "2006-01-02 15:04"

// Formatter fills message patterns. Recognised placeholders are {route},
// {old_time}, {new_time} and {departure_time}.
type Formatter struct {
	departureChanged string
	reminder         string
	loc              *time.Location
}

func NewFormatter(departureChanged, reminder string, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{departureChanged: departureChanged, reminder: reminder, loc: loc}
}

func (f *Formatter) DepartureChanged(c domain.DepartureChange) string {
	return strings.NewReplacer(
		"{route}", c.Route,
		"{old_time}", f.clock(c.OldDeparture),
		"{new_time}", f.clock(c.NewDeparture),
	).Replace(f.departureChanged)
}

func (f *Formatter) Reminder(t domain.TicketDetail) string {
	return strings.NewReplacer(
		"{route}", t.RouteName,
		"{departure_time}", f.clock(t.DepartureTime),
	).Replace(f.reminder)
}

func (f *Formatter) clock(t time.Time) string {
	return t.In(f.loc).Format(timeLayout)
}
