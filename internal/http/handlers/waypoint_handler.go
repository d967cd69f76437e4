// README: Waypoint handlers for save/list/delete/export.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trailquest/internal/http/middleware"
	"trailquest/internal/modules/waypoint"
	"trailquest/internal/types"
)

type WaypointHandler struct {
	waypoints *waypoint.Service
}

func NewWaypointHandler(svc *waypoint.Service) *WaypointHandler {
	return &WaypointHandler{waypoints: svc}
}

type waypointResp struct {
	ID         string    `json:"id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"captured_at"`
}

type listingResp struct {
	State     waypoint.ListingState `json:"state"`
	Waypoints []waypointResp        `json:"waypoints"`
	Error     string                `json:"error,omitempty"`
}

func toWaypointResp(w waypoint.Waypoint) waypointResp {
	return waypointResp{
		ID:         w.ID.String(),
		Latitude:   w.Point.Lat,
		Longitude:  w.Point.Lng,
		CapturedAt: w.CapturedAt.UTC(),
	}
}

func toWaypointResps(ws []waypoint.Waypoint) []waypointResp {
	out := make([]waypointResp, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWaypointResp(w))
	}
	return out
}

// Save captures the caller's current fix as a waypoint.
func (h *WaypointHandler) Save(c *gin.Context) {
	w, err := h.waypoints.SaveCurrentLocation(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeModuleError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toWaypointResp(w))
}

// List refreshes the caller's listing. A store failure still returns the
// previously loaded items alongside the error.
func (h *WaypointHandler) List(c *gin.Context) {
	owner := middleware.CallerUID(c)
	items, err := h.waypoints.ListWaypoints(c.Request.Context(), owner)
	if errors.Is(err, waypoint.ErrStore) {
		_ = c.Error(err)
		snap := h.waypoints.Listing(owner)
		writeJSON(c, http.StatusBadGateway, listingResp{
			State:     snap.State,
			Waypoints: toWaypointResps(snap.Items),
			Error:     err.Error(),
		})
		return
	}
	if err != nil {
		writeModuleError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, listingResp{State: waypoint.ListingLoaded, Waypoints: toWaypointResps(items)})
}

func (h *WaypointHandler) Delete(c *gin.Context) {
	err := h.waypoints.DeleteWaypoint(c.Request.Context(), middleware.CallerUID(c), types.ID(c.Param("id")))
	if err != nil {
		writeModuleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export renders the caller's waypoints as a GeoJSON FeatureCollection.
func (h *WaypointHandler) Export(c *gin.Context) {
	fc, err := h.waypoints.ExportGeoJSON(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeModuleError(c, err)
		return
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		writeModuleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}
