package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/drawsync/internal/core"
	"github.com/vovakirdan/drawsync/internal/drawing"
	"github.com/vovakirdan/drawsync/internal/export"
)

const (
	defaultExportWidth  = 1280
	defaultExportHeight = 720
	maxExportSide       = 8192
	snapshotTimeout     = 5 * time.Second
)

// ErrorResponse is the JSON body of a failed HTTP request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports liveness and the number of live rooms.
type HealthResponse struct {
	Status    string `json:"status"`
	RoomCount int    `json:"roomCount"`
}

// RoomExistsResponse answers whether a room id is live.
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// RoomHandlers provides HTTP handlers for room queries and exports.
type RoomHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(hub *core.Hub, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		hub: hub,
		log: logger,
	}
}

// Health reports server liveness.
// GET /health
func (h *RoomHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", RoomCount: h.hub.Registry().Count()})
}

// Exists reports whether a room is live.
// GET /room/:roomId
func (h *RoomHandlers) Exists(c *gin.Context) {
	c.JSON(http.StatusOK, RoomExistsResponse{Exists: h.hub.Registry().Exists(c.Param("roomId"))})
}

// ExportPNG renders a room's committed history to a PNG image.
// GET /room/:roomId/export.png?w=&h=
func (h *RoomHandlers) ExportPNG(c *gin.Context) {
	width, err := dimension(c.Query("w"), defaultExportWidth)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid width"})
		return
	}
	height, err := dimension(c.Query("h"), defaultExportHeight)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid height"})
		return
	}

	strokes, ok := h.snapshot(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.PNG(&buf, strokes, width, height); err != nil {
		h.log.Error().Err(err).Str("room", c.Param("roomId")).Msg("failed to render png")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// ExportPDF renders a room's committed history to a one-page PDF.
// GET /room/:roomId/export.pdf
func (h *RoomHandlers) ExportPDF(c *gin.Context) {
	strokes, ok := h.snapshot(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.PDF(&buf, strokes); err != nil {
		h.log.Error().Err(err).Str("room", c.Param("roomId")).Msg("failed to render pdf")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *RoomHandlers) snapshot(c *gin.Context) ([]drawing.Stroke, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), snapshotTimeout)
	defer cancel()

	roomID := c.Param("roomId")
	strokes, err := h.hub.Snapshot(ctx, roomID)
	switch {
	case err == nil:
		return strokes, true
	case errors.Is(err, core.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
	default:
		h.log.Error().Err(err).Str("room", roomID).Msg("failed to snapshot room")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "room unavailable"})
	}
	return nil, false
}

func dimension(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v <= 0 || v > maxExportSide {
		return 0, errors.New("dimension out of range")
	}
	return v, nil
}
