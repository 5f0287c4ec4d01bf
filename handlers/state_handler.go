package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ChristophStock/tvteam-ted/services"
)

// StateHandler serves the global display state and the runtime config the
// display and control pages fetch on load.
type StateHandler struct {
	session *services.SessionService
	hub     *services.Hub
	title   string
	videos  []services.VideoAsset
}

func NewStateHandler(session *services.SessionService, hub *services.Hub, title string, videos []services.VideoAsset) *StateHandler {
	return &StateHandler{session: session, hub: hub, title: title, videos: videos}
}

type setModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (h *StateHandler) GetDisplayMode(c *gin.Context) {
	mode, err := h.session.DisplayMode(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode})
}

func (h *StateHandler) SetDisplayMode(c *gin.Context) {
	var req setModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.session.SetDisplayMode(c.Request.Context(), req.Mode); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": req.Mode})
}

// GetStatus is the re-fetch point for clients recovering after a disconnect:
// current mode plus the latest video cache aggregate, if any was reported.
func (h *StateHandler) GetStatus(c *gin.Context) {
	mode, err := h.session.DisplayMode(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":       mode,
		"videoCache": h.hub.CacheSnapshot(),
	})
}

func (h *StateHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title":  h.title,
		"videos": h.videos,
	})
}
