// README: Position handlers: device fix/permission reports and current fix.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trailquest/internal/http/middleware"
	"trailquest/internal/modules/position"
	"trailquest/internal/types"
)

// FixReporter accepts what devices report about their location state.
type FixReporter interface {
	ReportFix(ctx context.Context, owner types.ID, fix position.Fix) error
	SetPermission(ctx context.Context, owner types.ID, granted bool) error
}

type PositionHandler struct {
	source   *position.Source
	reporter FixReporter
}

func NewPositionHandler(source *position.Source, reporter FixReporter) *PositionHandler {
	return &PositionHandler{source: source, reporter: reporter}
}

type reportFixReq struct {
	Latitude       *float64   `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude      *float64   `json:"longitude" binding:"required,gte=-180,lte=180"`
	AccuracyMeters *float64   `json:"accuracy_m" binding:"omitempty,gte=0"`
	RecordedAt     *time.Time `json:"recorded_at"`
}

type permissionReq struct {
	Granted *bool `json:"granted" binding:"required"`
}

type fixResp struct {
	Status         string     `json:"status"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	AccuracyMeters *float64   `json:"accuracy_m,omitempty"`
	RecordedAt     *time.Time `json:"recorded_at,omitempty"`
}

// Report stores the caller's latest device fix.
func (h *PositionHandler) Report(c *gin.Context) {
	var req reportFixReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid fix: "+err.Error())
		return
	}
	fix := position.Fix{
		Point:          types.Point{Lat: *req.Latitude, Lng: *req.Longitude},
		AccuracyMeters: req.AccuracyMeters,
	}
	if req.RecordedAt != nil {
		fix.RecordedAt = *req.RecordedAt
	}
	if err := h.reporter.ReportFix(c.Request.Context(), middleware.CallerUID(c), fix); err != nil {
		writeModuleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPermission records the caller's location permission decision.
func (h *PositionHandler) SetPermission(c *gin.Context) {
	var req permissionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid permission: "+err.Error())
		return
	}
	if err := h.reporter.SetPermission(c.Request.Context(), middleware.CallerUID(c), *req.Granted); err != nil {
		writeModuleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Current returns the caller's fix, or {status: fetching} while none exists.
func (h *PositionHandler) Current(c *gin.Context) {
	fix, err := h.source.CurrentFix(c.Request.Context(), middleware.CallerUID(c))
	if errors.Is(err, position.ErrNoFixAvailable) {
		writeJSON(c, http.StatusOK, gin.H{"status": "fetching"})
		return
	}
	if err != nil {
		writeModuleError(c, err)
		return
	}
	resp := fixResp{
		Status:         "ok",
		Latitude:       fix.Point.Lat,
		Longitude:      fix.Point.Lng,
		AccuracyMeters: fix.AccuracyMeters,
	}
	if !fix.RecordedAt.IsZero() {
		at := fix.RecordedAt.UTC()
		resp.RecordedAt = &at
	}
	writeJSON(c, http.StatusOK, resp)
}
