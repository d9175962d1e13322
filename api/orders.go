package api

import (
	"net/http"

	"github.com/Domenick1991/airline/internal/auth"
	"github.com/Domenick1991/airline/internal/service/orders"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service orders.OrderUseCase
}

func NewOrderHandler(service orders.OrderUseCase) *OrderHandler {
	return &OrderHandler{service: service}
}

// Register mounts /orders and /tickets on an authenticated group.
func (h *OrderHandler) Register(router *gin.RouterGroup) {
	router.POST("/orders", h.create)
	router.GET("/orders", h.list)
	router.GET("/tickets", h.tickets)
}

// ticketRequest leaves row and seat bounds to the seat validation so every
// out-of-grid position gets the same field-keyed error.
type ticketRequest struct {
	Flight int64 `json:"flight" binding:"required"`
	Row    int   `json:"row"`
	Seat   int   `json:"seat"`
}

type orderRequest struct {
	Tickets []ticketRequest `json:"tickets" binding:"required,min=1,dive"`
}

func (h *OrderHandler) create(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	specs := make([]orders.TicketSpec, 0, len(req.Tickets))
	for _, t := range req.Tickets {
		specs = append(specs, orders.TicketSpec{FlightID: t.Flight, Row: t.Row, Seat: t.Seat})
	}

	order, err := h.service.Create(c.Request.Context(), auth.PrincipalFrom(c), specs)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, renderOrder(*order))
}

func (h *OrderHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, renderOrder(o))
	}
	c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) tickets(c *gin.Context) {
	list, err := h.service.Tickets(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]ticketView, 0, len(list))
	for _, t := range list {
		out = append(out, renderTicket(t))
	}
	c.JSON(http.StatusOK, out)
}
