package domain

import (
	"strconv"
	"strings"
	"time"
)

var FlightOrderingFields = map[string]string{
	"airplane__name":           "a.name",
	"departure_time":           "f.departure_time",
	"arrival_time":             "f.arrival_time",
	"route__source__name":      "src.name",
	"route__destination__name": "dst.name",
}

// FlightFilter holds the listing query. FutureOnly and Now are derived from
// the caller, not from request parameters.
type FlightFilter struct {
	RouteID       *int64
	AirplaneID    *int64
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	DepartureFrom *time.Time
	DepartureTo   *time.Time
	ArrivalFrom   *time.Time
	ArrivalTo     *time.Time
	Search        string
	Ordering      string

	FutureOnly bool
	Now        time.Time
}

// Fingerprint is a canonical rendering of the request parameters, stable
// across parameter order. Now is excluded.
func (f FlightFilter) Fingerprint() string {
	var b strings.Builder
	writeInt := func(name string, v *int64) {
		if v != nil {
			b.WriteString(name + "=" + strconv.FormatInt(*v, 10) + "&")
		}
	}
	writeTime := func(name string, v *time.Time) {
		if v != nil {
			b.WriteString(name + "=" + v.UTC().Format(time.RFC3339Nano) + "&")
		}
	}
	writeInt("route", f.RouteID)
	writeInt("airplane", f.AirplaneID)
	writeTime("departure_time", f.DepartureTime)
	writeTime("arrival_time", f.ArrivalTime)
	writeTime("departure_time_from", f.DepartureFrom)
	writeTime("departure_time_to", f.DepartureTo)
	writeTime("arrival_time_from", f.ArrivalFrom)
	writeTime("arrival_time_to", f.ArrivalTo)
	if f.Search != "" {
		b.WriteString("search=" + strings.ToLower(f.Search) + "&")
	}
	if f.Ordering != "" {
		b.WriteString("ordering=" + f.Ordering + "&")
	}
	return b.String()
}
