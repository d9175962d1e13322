package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/airline/internal/auth"
	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type AvailabilityReader interface {
	AvailableSeats(ctx context.Context, flightID int64) (domain.Availability, error)
}

type FlightHandler struct {
	service      flights.FlightUseCase
	availability AvailabilityReader
	now          func() time.Time
}

func NewFlightHandler(service flights.FlightUseCase, availability AvailabilityReader) *FlightHandler {
	return &FlightHandler{service: service, availability: availability, now: time.Now}
}

// Register mounts the flight routes. The group must already run the
// authentication middleware.
func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/availability", h.available)

	staff := router.Group("", auth.RequireStaff())
	staff.POST("", h.create)
	staff.PUT("/:id", h.replace)
	staff.PATCH("/:id", h.patch)
	staff.DELETE("/:id", h.delete)
}

type flightRequest struct {
	Route         *int64     `json:"route"`
	Airplane      *int64     `json:"airplane"`
	DepartureTime *time.Time `json:"departure_time"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	Crew          *[]int64   `json:"crew"`
}

func (r flightRequest) requireAll() error {
	return required(map[string]bool{
		"route":          r.Route != nil,
		"airplane":       r.Airplane != nil,
		"departure_time": r.DepartureTime != nil,
		"arrival_time":   r.ArrivalTime != nil,
	})
}

func (h *FlightHandler) list(c *gin.Context) {
	filter, err := parseFlightFilter(c)
	if err != nil {
		writeError(c, err)
		return
	}

	p := auth.PrincipalFrom(c)
	items, err := h.service.List(c.Request.Context(), filter, p.IsStaff)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderFlightList(items))
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	p := auth.PrincipalFrom(c)
	detail, err := h.service.Get(c.Request.Context(), id, p.IsStaff)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, renderFlightDetail(SelectFlightShape(OpRetrieve, p.IsStaff), detail))
}

// available follows the detail visibility rule: non-staff callers do not
// see flights that have departed.
func (h *FlightHandler) available(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	a, err := h.availability.AvailableSeats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !auth.PrincipalFrom(c).IsStaff && !a.DepartureTime.After(h.now()) {
		writeError(c, domain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, a)
}

func (h *FlightHandler) create(c *gin.Context) {
	var req flightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.requireAll(); err != nil {
		writeError(c, err)
		return
	}

	in := flights.CreateInput{
		RouteID:       *req.Route,
		AirplaneID:    *req.Airplane,
		DepartureTime: *req.DepartureTime,
		ArrivalTime:   *req.ArrivalTime,
	}
	if req.Crew != nil {
		in.CrewIDs = *req.Crew
	}

	f, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, renderFlightWrite(f))
}

// replace is a full update: every field is required and an omitted crew
// clears the assignment.
func (h *FlightHandler) replace(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req flightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.requireAll(); err != nil {
		writeError(c, err)
		return
	}

	crew := []int64{}
	if req.Crew != nil {
		crew = *req.Crew
	}
	h.update(c, id, flights.UpdateInput{
		RouteID:       req.Route,
		AirplaneID:    req.Airplane,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		CrewIDs:       &crew,
	})
}

func (h *FlightHandler) patch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req flightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.update(c, id, flights.UpdateInput{
		RouteID:       req.Route,
		AirplaneID:    req.Airplane,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		CrewIDs:       req.Crew,
	})
}

func (h *FlightHandler) update(c *gin.Context, id int64, in flights.UpdateInput) {
	f, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderFlightWrite(f))
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// parseFlightFilter reads the listing query. Unknown ordering fields are
// dropped so they fall back to the default order.
func parseFlightFilter(c *gin.Context) (domain.FlightFilter, error) {
	var f domain.FlightFilter
	invalid := map[string]string{}

	ids := map[string]**int64{"route": &f.RouteID, "airplane": &f.AirplaneID}
	for name, dst := range ids {
		v, ok := c.GetQuery(name)
		if !ok || v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			invalid[name] = "Enter a whole number."
			continue
		}
		*dst = &id
	}

	times := map[string]**time.Time{
		"departure_time":      &f.DepartureTime,
		"arrival_time":        &f.ArrivalTime,
		"departure_time_from": &f.DepartureFrom,
		"departure_time_to":   &f.DepartureTo,
		"arrival_time_from":   &f.ArrivalFrom,
		"arrival_time_to":     &f.ArrivalTo,
	}
	for name, dst := range times {
		v, ok := c.GetQuery(name)
		if !ok || v == "" {
			continue
		}
		t, err := parseQueryTime(v)
		if err != nil {
			invalid[name] = "Enter a valid date/time."
			continue
		}
		*dst = &t
	}

	if len(invalid) > 0 {
		return f, &domain.ValidationError{Fields: invalid}
	}

	f.Search = strings.TrimSpace(c.Query("search"))
	f.Ordering = cleanOrdering(c.Query("ordering"))
	return f, nil
}

func cleanOrdering(ordering string) string {
	var terms []string
	for _, term := range strings.Split(ordering, ",") {
		term = strings.TrimSpace(term)
		if _, ok := domain.FlightOrderingFields[strings.TrimPrefix(term, "-")]; ok {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, ",")
}
