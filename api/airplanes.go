package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/airline/internal/auth"
	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/service/airplanes"
	"github.com/gin-gonic/gin"
)

type AirplaneHandler struct {
	service airplanes.AirplaneUseCase
}

func NewAirplaneHandler(service airplanes.AirplaneUseCase) *AirplaneHandler {
	return &AirplaneHandler{service: service}
}

func (h *AirplaneHandler) Register(router *gin.RouterGroup) {
	router.GET("/airplanes", h.list)
	router.GET("/crews", h.listCrews)

	staff := router.Group("", auth.RequireStaff())
	staff.POST("/airplanes", h.create)
	staff.PATCH("/airplanes/:id", h.patch)
	staff.POST("/crews", h.createCrew)
}

type airplaneRequest struct {
	Name         *string `json:"name"`
	Rows         *int    `json:"rows"`
	SeatsInRow   *int    `json:"seats_in_row"`
	AirplaneType *int64  `json:"airplane_type"`
}

func (h *AirplaneHandler) create(c *gin.Context) {
	var req airplaneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := required(map[string]bool{
		"name":         req.Name != nil && strings.TrimSpace(*req.Name) != "",
		"rows":         req.Rows != nil,
		"seats_in_row": req.SeatsInRow != nil,
	}); err != nil {
		writeError(c, err)
		return
	}

	a := domain.Airplane{Name: *req.Name, Rows: *req.Rows, SeatsInRow: *req.SeatsInRow}
	if req.AirplaneType != nil {
		a.AirplaneTypeID = *req.AirplaneType
	}

	created, err := h.service.Create(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *AirplaneHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AirplaneHandler) patch(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req airplaneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), id, airplanes.UpdateInput{
		Name:           req.Name,
		Rows:           req.Rows,
		SeatsInRow:     req.SeatsInRow,
		AirplaneTypeID: req.AirplaneType,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *AirplaneHandler) createCrew(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := required(map[string]bool{
		"first_name": strings.TrimSpace(req.FirstName) != "",
		"last_name":  strings.TrimSpace(req.LastName) != "",
	}); err != nil {
		writeError(c, err)
		return
	}

	crew, err := h.service.CreateCrew(c.Request.Context(), req.FirstName, req.LastName)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, crew)
}

func (h *AirplaneHandler) listCrews(c *gin.Context) {
	list, err := h.service.ListCrews(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
