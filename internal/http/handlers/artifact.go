package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyfold/studyspace-backend/internal/artifact"
	"github.com/studyfold/studyspace-backend/internal/http/response"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/requestdata"
	"github.com/studyfold/studyspace-backend/internal/services"
)

const maxArtifactPayloadBytes = 4 << 20

type ArtifactHandler struct {
	log       *logger.Logger
	artifacts services.ArtifactService
}

func NewArtifactHandler(log *logger.Logger, artifacts services.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{
		log:       log.With("handler", "ArtifactHandler"),
		artifacts: artifacts,
	}
}

// Apply is the agent's result callback: one artifact payload per call,
// validated here and rejected loudly on shape mismatch. Accepted payloads
// are persisted and fanned out on the (space, kind) feed channel.
func (h *ArtifactHandler) Apply(c *gin.Context) {
	id, ok := parseSpaceID(c)
	if !ok {
		return
	}
	kind, err := artifact.ParseKind(c.Param("kind"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unknown_artifact_kind", err)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxArtifactPayloadBytes))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	snapshot, err := h.artifacts.Apply(c.Request.Context(), id, kind, json.RawMessage(payload))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learning_space": snapshot})
}

// Status reports per-artifact pending/ready for one space from the current
// snapshot; a just-mounted viewer uses this alongside the feed.
func (h *ArtifactHandler) Status(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := parseSpaceID(c)
	if !ok {
		return
	}
	status, err := h.artifacts.Status(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"artifacts": status})
}

// GenerateAudio is the synchronous regenerate action for the audio
// overview. The response carries the new URL; failures surface here and
// leave the stored artifact untouched.
func (h *ArtifactHandler) GenerateAudio(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := parseSpaceID(c)
	if !ok {
		return
	}
	url, err := h.artifacts.GenerateAudioOverview(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "audio_url": url})
}
