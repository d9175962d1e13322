package api

import (
	"time"

	"github.com/Domenick1991/airline/internal/domain"
)

// Operation is the kind of request a flight response answers.
type Operation int

const (
	OpList Operation = iota
	OpRetrieve
	OpWrite
)

// Shape is one of the fixed flight response layouts.
type Shape string

const (
	ShapeList        Shape = "list"
	ShapeDetail      Shape = "detail"
	ShapeAdminDetail Shape = "admin_detail"
	ShapeWrite       Shape = "write"
)

func SelectFlightShape(op Operation, staff bool) Shape {
	switch op {
	case OpList:
		return ShapeList
	case OpRetrieve:
		if staff {
			return ShapeAdminDetail
		}
		return ShapeDetail
	default:
		return ShapeWrite
	}
}

type flightListItem struct {
	ID               int64     `json:"id"`
	Route            string    `json:"route"`
	Airplane         string    `json:"airplane"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	Capacity         int       `json:"capacity"`
	TicketsAvailable int       `json:"tickets_available"`
}

type routeView struct {
	ID          int64  `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Distance    int    `json:"distance"`
}

type airplaneView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
	Capacity   int    `json:"capacity"`
}

type flightDetailView struct {
	ID               int64         `json:"id"`
	Route            routeView     `json:"route"`
	Airplane         airplaneView  `json:"airplane"`
	DepartureTime    time.Time     `json:"departure_time"`
	ArrivalTime      time.Time     `json:"arrival_time"`
	TakenPlaces      []domain.Seat `json:"taken_places"`
	TicketsAvailable int           `json:"tickets_available"`
}

type adminFlightDetailView struct {
	flightDetailView
	Crew []string `json:"crew"`
}

type flightWriteView struct {
	ID            int64     `json:"id"`
	Route         int64     `json:"route"`
	Airplane      int64     `json:"airplane"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Crew          []int64   `json:"crew"`
}

func renderFlightList(flights []domain.FlightSummary) []flightListItem {
	out := make([]flightListItem, 0, len(flights))
	for _, f := range flights {
		out = append(out, flightListItem{
			ID:               f.ID,
			Route:            f.RouteName,
			Airplane:         f.AirplaneName,
			DepartureTime:    f.DepartureTime,
			ArrivalTime:      f.ArrivalTime,
			Capacity:         f.Capacity,
			TicketsAvailable: f.TicketsAvailable,
		})
	}
	return out
}

func renderFlightDetail(shape Shape, d *domain.FlightDetail) any {
	detail := flightDetailView{
		ID: d.ID,
		Route: routeView{
			ID:          d.Route.ID,
			Source:      d.Route.Source.Name,
			Destination: d.Route.Destination.Name,
			Distance:    d.Route.Distance,
		},
		Airplane: airplaneView{
			ID:         d.Airplane.ID,
			Name:       d.Airplane.Name,
			Rows:       d.Airplane.Rows,
			SeatsInRow: d.Airplane.SeatsInRow,
			Capacity:   d.Airplane.Capacity(),
		},
		DepartureTime:    d.DepartureTime,
		ArrivalTime:      d.ArrivalTime,
		TakenPlaces:      d.TakenSeats,
		TicketsAvailable: d.TicketsAvailable,
	}
	if detail.TakenPlaces == nil {
		detail.TakenPlaces = []domain.Seat{}
	}
	if shape != ShapeAdminDetail {
		return detail
	}

	crew := make([]string, 0, len(d.Crew))
	for _, c := range d.Crew {
		crew = append(crew, c.FullName())
	}
	return adminFlightDetailView{flightDetailView: detail, Crew: crew}
}

func renderFlightWrite(f *domain.Flight) flightWriteView {
	crew := f.CrewIDs
	if crew == nil {
		crew = []int64{}
	}
	return flightWriteView{
		ID:            f.ID,
		Route:         f.RouteID,
		Airplane:      f.AirplaneID,
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
		Crew:          crew,
	}
}

type ticketView struct {
	ID            int64      `json:"id"`
	Row           int        `json:"row"`
	Seat          int        `json:"seat"`
	Flight        int64      `json:"flight"`
	Order         int64      `json:"order"`
	Route         string     `json:"route,omitempty"`
	Airplane      string     `json:"airplane,omitempty"`
	DepartureTime *time.Time `json:"departure_time,omitempty"`
}

type orderView struct {
	ID        int64        `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Tickets   []ticketView `json:"tickets"`
}

func renderOrder(o domain.Order) orderView {
	tickets := make([]ticketView, 0, len(o.Tickets))
	for _, t := range o.Tickets {
		tickets = append(tickets, ticketView{ID: t.ID, Row: t.Row, Seat: t.Seat, Flight: t.FlightID, Order: t.OrderID})
	}
	return orderView{ID: o.ID, CreatedAt: o.CreatedAt, Tickets: tickets}
}

func renderTicket(t domain.TicketDetail) ticketView {
	dep := t.DepartureTime
	return ticketView{
		ID:            t.ID,
		Row:           t.Row,
		Seat:          t.Seat,
		Flight:        t.FlightID,
		Order:         t.OrderID,
		Route:         t.RouteName,
		Airplane:      t.AirplaneName,
		DepartureTime: &dep,
	}
}
