package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/benmeehan/pixie-bridge/internal/devices"
	"github.com/benmeehan/pixie-bridge/internal/drawing"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

type addDeviceRequest struct {
	MAC string `json:"mac" binding:"required"`
}

type claimRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name"`
}

type claimByMACRequest struct {
	Name string `json:"name"`
}

type saveDrawingRequest struct {
	Title string `json:"title"`
}

type showPhotoRequest struct {
	PhotoID int64 `json:"photoId" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	connected := s.broker != nil && s.broker.IsConnected()
	code, status := http.StatusOK, "ok"
	if !connected {
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	sessions := 0
	if s.sessions != nil {
		sessions = s.sessions.ActiveSessions()
	}
	c.JSON(code, gin.H{
		"status":   status,
		"mqtt":     connected,
		"sessions": sessions,
	})
}

func (s *Server) websocket(c *gin.Context) {
	s.realtime.ServeHTTP(c.Writer, c.Request, currentUser(c))
}

func (s *Server) addDevice(c *gin.Context) {
	var req addDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := s.devices.AddDevice(c.Request.Context(), req.MAC)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := s.devices.Claim(c.Request.Context(), req.Code, currentUser(c).ID, req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) claimByMAC(c *gin.Context) {
	var req claimByMACRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	d, err := s.devices.ClaimByMAC(c.Request.Context(), c.Param("mac"), currentUser(c).ID, req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) updateConfig(c *gin.Context) {
	id, ok := deviceParam(c)
	if !ok {
		return
	}
	var patch models.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := s.devices.UpdateConfig(c.Request.Context(), id, currentUser(c).ID, patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) factoryReset(c *gin.Context) {
	id, ok := deviceParam(c)
	if !ok {
		return
	}
	if err := s.devices.FactoryReset(c.Request.Context(), id, currentUser(c).ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) showPhoto(c *gin.Context) {
	id, ok := deviceParam(c)
	if !ok {
		return
	}
	var req showPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.devices.ShowPhoto(c.Request.Context(), id, currentUser(c).ID, req.PhotoID); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) saveDrawing(c *gin.Context) {
	id, ok := deviceParam(c)
	if !ok {
		return
	}
	var req saveDrawingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	d, err := s.drawings.Save(c.Request.Context(), id, currentUser(c).ID, req.Title)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) listDrawings(c *gin.Context) {
	id, ok := deviceParam(c)
	if !ok {
		return
	}
	list, err := s.drawings.List(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) loadDrawing(c *gin.Context) {
	id, ok := deviceParam(c)
	if !ok {
		return
	}
	drawingID, err := strconv.ParseInt(c.Param("drawingId"), 10, 64)
	if err != nil || drawingID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid drawing id"})
		return
	}
	d, err := s.drawings.Load(c.Request.Context(), id, currentUser(c).ID, drawingID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func deviceParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device id"})
		return 0, false
	}
	return id, true
}

// fail maps domain errors to status codes.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, devices.ErrNotOwner), errors.Is(err, drawing.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrSessionNotFound):
		status = http.StatusConflict
	case errors.Is(err, models.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
