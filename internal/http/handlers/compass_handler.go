// README: Compass handlers: session open/close and sensor sample updates.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trailquest/internal/http/middleware"
	"trailquest/internal/modules/orientation"
)

type CompassHandler struct {
	registry *orientation.Registry
}

func NewCompassHandler(registry *orientation.Registry) *CompassHandler {
	return &CompassHandler{registry: registry}
}

type sampleReq struct {
	Sensor    string     `json:"sensor" binding:"required,oneof=accelerometer magnetometer"`
	Values    []float64  `json:"values" binding:"required,len=3"`
	Timestamp *time.Time `json:"timestamp"`
}

type headingResp struct {
	Resolved       bool     `json:"resolved"`
	HeadingDegrees *float64 `json:"heading_degrees"`
}

func toHeadingResp(r orientation.Reading) headingResp {
	resp := headingResp{Resolved: r.Resolved}
	if r.HasHeading {
		h := r.HeadingDegrees
		resp.HeadingDegrees = &h
	}
	return resp
}

func (h *CompassHandler) Open(c *gin.Context) {
	h.registry.Open(middleware.CallerUID(c))
	writeJSON(c, http.StatusCreated, gin.H{"status": "open"})
}

func (h *CompassHandler) Close(c *gin.Context) {
	h.registry.Close(middleware.CallerUID(c))
	c.Status(http.StatusNoContent)
}

// Heading returns the latest heading without feeding a sample.
func (h *CompassHandler) Heading(c *gin.Context) {
	r, err := h.registry.Heading(middleware.CallerUID(c))
	if err != nil {
		writeModuleError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toHeadingResp(r))
}

// Sample feeds one accelerometer or magnetometer reading into the caller's
// estimator.
func (h *CompassHandler) Sample(c *gin.Context) {
	var req sampleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid sample: "+err.Error())
		return
	}
	sensor, err := orientation.ParseSensor(req.Sensor)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	s := orientation.Sample{Sensor: sensor, At: time.Now()}
	copy(s.Values[:], req.Values)
	if req.Timestamp != nil {
		s.At = *req.Timestamp
	}

	r, err := h.registry.Update(middleware.CallerUID(c), s)
	if err != nil {
		writeModuleError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toHeadingResp(r))
}
