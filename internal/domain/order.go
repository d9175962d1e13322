package domain

import "time"

type Seat struct {
	Row  int `json:"row"`
	Seat int `json:"seat"`
}

type Ticket struct {
	ID       int64 `json:"id"`
	FlightID int64 `json:"flight"`
	OrderID  int64 `json:"order"`
	Row      int   `json:"row"`
	Seat     int   `json:"seat"`
}

// Order owns its tickets; it is written once together with them.
type Order struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	Tickets   []Ticket  `json:"tickets"`
}

// TicketDetail is a ticket joined with its flight for display and reminders.
type TicketDetail struct {
	Ticket
	UserID        int64     `json:"-"`
	RouteName     string    `json:"route"`
	AirplaneName  string    `json:"airplane"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
}

// Principal is the authenticated caller as supplied by the auth layer.
type Principal struct {
	UserID  int64
	IsStaff bool
}

func SeatTakenError() *ValidationError {
	return NewValidationError(CodeSeatTaken, "seat", "Ticket already exists")
}
