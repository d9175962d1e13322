package domain

import "time"

type Flight struct {
	ID            int64     `json:"id"`
	RouteID       int64     `json:"route"`
	AirplaneID    int64     `json:"airplane"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	CrewIDs       []int64   `json:"crew"`
}

func (f Flight) Window() Window {
	return Window{Departure: f.DepartureTime, Arrival: f.ArrivalTime}
}

// Window is the half-open interval [Departure, Arrival).
type Window struct {
	Departure time.Time
	Arrival   time.Time
}

// Overlaps reports whether two windows share an instant. Touching endpoints
// do not overlap.
func (w Window) Overlaps(o Window) bool {
	return w.Departure.Before(o.Arrival) && w.Arrival.After(o.Departure)
}

// ValidateWindow checks the temporal invariants of a flight. requireFuture is
// set for creations and for updates that move the departure time.
func ValidateWindow(w Window, now time.Time, requireFuture bool) error {
	if requireFuture && !w.Departure.After(now) {
		return NewValidationError(CodePastDeparture, "departure_time", "Departure time must be in the future")
	}
	if !w.Departure.Before(w.Arrival) {
		return NewValidationError(CodeInvalidWindow, "departure_time", "Departure time is greater than arrival time")
	}
	return nil
}

func ScheduleConflictError() *ValidationError {
	return NewValidationError(CodeScheduleConflict, "airplane", "This airplane has flight in this time.")
}

// FlightSummary is the listing read model.
type FlightSummary struct {
	ID               int64     `json:"id"`
	RouteID          int64     `json:"route_id"`
	RouteName        string    `json:"route"`
	AirplaneID       int64     `json:"airplane_id"`
	AirplaneName     string    `json:"airplane"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	Capacity         int       `json:"capacity"`
	TicketsAvailable int       `json:"tickets_available"`
}

// FlightDetail is the single-flight read model.
type FlightDetail struct {
	ID               int64     `json:"id"`
	Route            Route     `json:"route"`
	Airplane         Airplane  `json:"airplane"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	Crew             []Crew    `json:"crew"`
	TakenSeats       []Seat    `json:"taken_places"`
	TicketsAvailable int       `json:"tickets_available"`
}

type Availability struct {
	FlightID         int64     `json:"flight_id"`
	DepartureTime    time.Time `json:"departure_time"`
	Capacity         int       `json:"capacity"`
	Taken            int       `json:"taken"`
	TicketsAvailable int       `json:"tickets_available"`
}

// DepartureChange is the only flight change that produces a notification.
type DepartureChange struct {
	FlightID     int64
	Route        string
	OldDeparture time.Time
	NewDeparture time.Time
}
