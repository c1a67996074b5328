package handlers

import (
	"errors"
	"net/http"

	"esp32_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

type setpointInput struct {
	Setpoint *int `json:"setpoint" binding:"required"`
}

type trackInput struct {
	HeightPx *float64 `json:"height_px" binding:"required,gte=0"`
}

type moveInput struct {
	DeltaPx *float64 `json:"delta_px" binding:"required"`
}

// setpointView is the response body of every setpoint endpoint.
type setpointView struct {
	Setpoint int                  `json:"setpoint"`
	Label    string               `json:"label"`
	Gesture  service.GestureState `json:"gesture"`
}

func (h *Handler) currentSetpoint() setpointView {
	v := h.services.Setpoint.Value()
	return setpointView{
		Setpoint: v,
		Label:    service.FormatSetpoint(v),
		Gesture:  h.services.Setpoint.Gesture(),
	}
}

func (h *Handler) respondSetpointError(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSetpointOutOfRange):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrTrackNotMeasured), errors.Is(err, service.ErrNotDragging):
		code = http.StatusConflict
	default:
		h.log.Errorw("setpoint_failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// @Summary      Get setpoint
// @Tags         setpoint
// @Produce      json
// @Success      200  {object}  setpointView
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/setpoint [get]
// @Security     BearerAuth
func (h *Handler) getSetpoint(c *gin.Context) {
	c.JSON(http.StatusOK, h.currentSetpoint())
}

// @Summary      Set setpoint
// @Description  Sets the setpoint directly. Accepts 15..35 °C.
// @Tags         setpoint
// @Accept       json
// @Produce      json
// @Param        body  body      setpointInput  true  "Setpoint in °C"
// @Success      200   {object}  setpointView
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/setpoint [put]
// @Security     BearerAuth
func (h *Handler) putSetpoint(c *gin.Context) {
	var in setpointInput
	if ok := h.bindJSONOrBadRequest(c, &in); !ok {
		return
	}
	if err := h.services.Setpoint.Set(*in.Setpoint); err != nil {
		h.respondSetpointError(c, err)
		return
	}
	h.log.Infow("setpoint_set", "operator", c.GetInt(operatorCtxKey), "setpoint", *in.Setpoint)
	c.JSON(http.StatusOK, h.currentSetpoint())
}

// @Summary      Measure the slider track
// @Description  Reports the rendered track height. The handle keeps its setpoint across resizes.
// @Tags         setpoint
// @Accept       json
// @Produce      json
// @Param        body  body      trackInput  true  "Track height in px"
// @Success      200   {object}  setpointView
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/setpoint/track [put]
// @Security     BearerAuth
func (h *Handler) putTrack(c *gin.Context) {
	var in trackInput
	if ok := h.bindJSONOrBadRequest(c, &in); !ok {
		return
	}
	h.services.Setpoint.SetTrackHeight(*in.HeightPx)
	c.JSON(http.StatusOK, h.currentSetpoint())
}

// @Summary      Begin a drag gesture
// @Tags         setpoint
// @Produce      json
// @Success      200  {object}  setpointView
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/setpoint/gesture/start [post]
// @Security     BearerAuth
func (h *Handler) gestureStart(c *gin.Context) {
	// Service.Start is the lifecycle method; the gesture one lives on Setpoint.
	if err := h.services.Setpoint.Start(); err != nil {
		h.respondSetpointError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.currentSetpoint())
}

// @Summary      Move the drag handle
// @Description  Applies a cumulative vertical offset relative to the drag start. Positive is down.
// @Tags         setpoint
// @Accept       json
// @Produce      json
// @Param        body  body      moveInput  true  "Cumulative delta in px"
// @Success      200   {object}  setpointView
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/setpoint/gesture/move [post]
// @Security     BearerAuth
func (h *Handler) gestureMove(c *gin.Context) {
	var in moveInput
	if ok := h.bindJSONOrBadRequest(c, &in); !ok {
		return
	}
	if _, err := h.services.Setpoint.Move(*in.DeltaPx); err != nil {
		h.respondSetpointError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.currentSetpoint())
}

// @Summary      End the drag gesture
// @Tags         setpoint
// @Produce      json
// @Success      200  {object}  setpointView
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/setpoint/gesture/end [post]
// @Security     BearerAuth
func (h *Handler) gestureEnd(c *gin.Context) {
	if err := h.services.Setpoint.End(); err != nil {
		h.respondSetpointError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.currentSetpoint())
}
