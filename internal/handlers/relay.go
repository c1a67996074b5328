package handlers

import (
	"errors"
	"net/http"

	"esp32_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errToggleFailed  = "relay write failed"
	errToggleUnknown = "failed to toggle relay"
)

// @Summary      Get supervisor state
// @Description  Display readings, relay view, setpoint and controller phase
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.SupervisorState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/device/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Toggle the relay
// @Description  Writes the negation of the displayed relay state. Rejected while the device is not online.
// @Tags         relay
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "is_on"
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]interface{}  "device offline, rejected"
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/relay/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleRelay(c *gin.Context) {
	on, err := h.services.RelayControl.Toggle(c.Request.Context())
	if err != nil {
		h.respondToggleError(c, err)
		return
	}
	h.log.Infow("relay_toggled", "operator", c.GetInt(operatorCtxKey), "is_on", on)
	c.JSON(http.StatusOK, gin.H{"is_on": on})
}

func (h *Handler) respondToggleError(c *gin.Context, err error) {
	var werr *service.WriteError
	switch {
	case errors.Is(err, service.ErrDeviceOffline):
		h.log.Infow("relay_toggle_rejected", "operator", c.GetInt(operatorCtxKey))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "rejected": true})
	case errors.As(err, &werr):
		h.logAndJSONError(c, http.StatusBadGateway, errToggleFailed, "relay_toggle_write_failed", err, "value", werr.Value)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errToggleUnknown, "relay_toggle_failed", err)
	}
}
