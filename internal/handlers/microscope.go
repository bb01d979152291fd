package handlers

import (
	"net/http"
	"strings"

	"digital_microscope/internal/models"
	"digital_microscope/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "
	errEmptyLine       = "invalid body: line is empty"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

type commandRequest struct {
	Line string `json:"line" binding:"required"`
}

// CommandRequest is an exported model for Swagger docs of the command payload.
type CommandRequest struct {
	// Shell command line
	Line string `json:"line" example:"objective change"`
}

// CommandResponse is the outcome of one command line.
type CommandResponse struct {
	// Shell status code: 0, -22 (invalid argument) or -13 (permission denied)
	Code    int                    `json:"code" example:"0"`
	Command string                 `json:"command,omitempty" example:"objective change"`
	Output  []string               `json:"output"`
	State   *models.DeviceSnapshot `json:"state,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Execute a shell command
// @Description  Failed commands still answer 200; see the code field.
// @Tags         microscope
// @Accept       json
// @Produce      json
// @Param        body  body   CommandRequest  true  "Command line"
// @Success      200   {object}  CommandResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/commands [post]
// @Security     BearerAuth
func (h *Handler) execCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if strings.TrimSpace(req.Line) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmptyLine})
		return
	}

	ctx := c.Request.Context()
	res, err := h.services.Console.Exec(ctx, service.SourceHTTP, req.Line)
	if err != nil && h.log != nil {
		// the command itself was applied
		h.log.Warnw("command_side_effects_failed", "err", err, "line", req.Line)
	}

	resp := CommandResponse{Code: res.Code, Command: res.Command, Output: res.Output}
	if resp.Output == nil {
		resp.Output = []string{}
	}
	if st, err := h.services.Monitoring.GetState(ctx); err == nil {
		resp.State = &st
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      List top-level commands
// @Tags         microscope
// @Produce      json
// @Success      200  {object}  map[string][]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/commands [get]
// @Security     BearerAuth
func (h *Handler) listCommands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": h.services.Console.Commands()})
}

// @Summary      Get microscope state
// @Tags         microscope
// @Produce      json
// @Success      200  {object}  models.DeviceSnapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/microscope/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "microscope_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
