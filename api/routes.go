package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/airline/internal/auth"
	"github.com/Domenick1991/airline/internal/service/routes"
	"github.com/gin-gonic/gin"
)

type RouteHandler struct {
	service routes.RouteUseCase
}

func NewRouteHandler(service routes.RouteUseCase) *RouteHandler {
	return &RouteHandler{service: service}
}

// Register mounts /routes and /airports. Reads are open to any
// authenticated caller, writes to staff.
func (h *RouteHandler) Register(router *gin.RouterGroup) {
	router.GET("/routes", h.list)
	router.GET("/airports", h.listAirports)

	staff := router.Group("", auth.RequireStaff())
	staff.POST("/routes", h.create)
	staff.POST("/airports", h.createAirport)
}

type routeRequest struct {
	Source      *int64 `json:"source"`
	Destination *int64 `json:"destination"`
	Distance    *int   `json:"distance"`
}

func (h *RouteHandler) create(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := required(map[string]bool{
		"source":      req.Source != nil,
		"destination": req.Destination != nil,
		"distance":    req.Distance != nil,
	}); err != nil {
		writeError(c, err)
		return
	}

	route, err := h.service.Create(c.Request.Context(), *req.Source, *req.Destination, *req.Distance)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, route)
}

func (h *RouteHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *RouteHandler) createAirport(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := required(map[string]bool{"name": strings.TrimSpace(req.Name) != ""}); err != nil {
		writeError(c, err)
		return
	}

	airport, err := h.service.CreateAirport(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, airport)
}

func (h *RouteHandler) listAirports(c *gin.Context) {
	list, err := h.service.ListAirports(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
