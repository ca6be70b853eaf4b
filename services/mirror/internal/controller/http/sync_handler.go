package http

import (
	"net/http"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/services/mirror/internal/usecase"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	mirrorUseCase usecase.MirrorUseCase
	logger        *logger.Logger
}

func NewSyncHandler(mirrorUseCase usecase.MirrorUseCase, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		mirrorUseCase: mirrorUseCase,
		logger:        logger,
	}
}

// GetSyncStatus godoc
// @Summary      Mirror status of the current user
// @Description  Last mirrored snapshot and last error of each list
// @Tags         mirror
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /sync [get]
func (h *SyncHandler) GetSyncStatus(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	states, err := h.mirrorUseCase.Status(c.Request.Context(), username)
	if err != nil {
		h.logger.Error("Failed to get sync status of %s: %v", username, err)
		apperr.Respond(c, err, "Failed to get sync status")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": username, "lists": states})
}

// Resync godoc
// @Summary      Mirror a list again
// @Tags         mirror
// @Produce      json
// @Security     BearerAuth
// @Param        kind path string true "notifications or messages"
// @Success      202  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /sync/{kind} [post]
func (h *SyncHandler) Resync(c *gin.Context) {
	username := c.GetString("username")
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	kind := mirror.Kind(c.Param("kind"))
	if err := h.mirrorUseCase.Resync(c.Request.Context(), username, kind); err != nil {
		apperr.Respond(c, err, "Failed to schedule mirror")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Mirror scheduled", "kind": string(kind)})
}
