package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldroute/fieldroute/internal/api/models"
	"github.com/fieldroute/fieldroute/internal/api/response"
	"github.com/fieldroute/fieldroute/internal/route"
)

// WaypointHandler handles waypoint lifecycle endpoints.
type WaypointHandler struct {
	service *route.Service
}

// NewWaypointHandler creates a new WaypointHandler.
func NewWaypointHandler(service *route.Service) *WaypointHandler {
	return &WaypointHandler{service: service}
}

// Arrive handles POST /v1/waypoints/{waypointId}:arrive.
func (h *WaypointHandler) Arrive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Arrive)
}

// Depart handles POST /v1/waypoints/{waypointId}:depart.
func (h *WaypointHandler) Depart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Depart)
}

// Skip handles POST /v1/waypoints/{waypointId}:skip.
func (h *WaypointHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Skip)
}

func (h *WaypointHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, waypointID string, notes *string) (*route.Waypoint, error),
) {
	waypointID := chi.URLParam(r, "waypointId")

	// The body is optional; an empty body means no notes.
	var input models.WaypointActionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && err != io.EOF {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	wp, err := apply(r.Context(), waypointID, input.Notes)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	parent, err := h.service.Get(r.Context(), wp.RouteID)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.WaypointActionResponse{
		Waypoint:    waypointModel(wp, time.Now()),
		RouteStatus: string(parent.DerivedStatus()),
	})
}
