package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyfold/studyspace-backend/internal/http/response"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/requestdata"
	"github.com/studyfold/studyspace-backend/internal/services"
)

// maxSourceUploadBytes bounds a single uploaded source file. The storage
// collaborator enforces its own limit server-side; this is the first line.
const maxSourceUploadBytes = 32 << 20

type LearningSpaceHandler struct {
	log    *logger.Logger
	spaces services.LearningSpaceService
}

func NewLearningSpaceHandler(log *logger.Logger, spaces services.LearningSpaceService) *LearningSpaceHandler {
	return &LearningSpaceHandler{
		log:    log.With("handler", "LearningSpaceHandler"),
		spaces: spaces,
	}
}

type createLearningSpaceRequest struct {
	Topic       string  `json:"topic" binding:"required"`
	PDFSource   *string `json:"pdf_source"`
	AudioSource *string `json:"audio_source"`
}

func (h *LearningSpaceHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req createLearningSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}

	space, err := h.spaces.Create(c.Request.Context(), rd.UserID, req.Topic, req.PDFSource, req.AudioSource)
	if errors.Is(err, services.ErrTriggerFailed) {
		// The row exists and stays all-pending; the caller decides whether
		// to delete and recreate.
		c.JSON(http.StatusBadGateway, gin.H{
			"learning_space": space,
			"error": response.APIError{
				Message: err.Error(),
				Code:    "agent_trigger_failed",
			},
		})
		return
	}
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"learning_space": space})
}

// Retrigger re-fires the generation trigger for a space whose create-time
// trigger failed. Artifact slots are untouched; results arrive through the
// usual agent callbacks.
func (h *LearningSpaceHandler) Retrigger(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := parseSpaceID(c)
	if !ok {
		return
	}
	err := h.spaces.Retrigger(c.Request.Context(), rd.UserID, id)
	if errors.Is(err, services.ErrTriggerFailed) {
		response.RespondError(c, http.StatusBadGateway, "agent_trigger_failed", err)
		return
	}
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"triggered": id})
}

func (h *LearningSpaceHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	spaces, err := h.spaces.List(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learning_spaces": spaces})
}

func (h *LearningSpaceHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := parseSpaceID(c)
	if !ok {
		return
	}
	space, err := h.spaces.Get(c.Request.Context(), rd.UserID, id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learning_space": space})
}

func (h *LearningSpaceHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, ok := parseSpaceID(c)
	if !ok {
		return
	}
	if err := h.spaces.Delete(c.Request.Context(), rd.UserID, id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}

func (h *LearningSpaceHandler) UploadSource(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err := c.Request.ParseMultipartForm(maxSourceUploadBytes); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	topic := c.Request.FormValue("topic")
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > maxSourceUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", nil)
		return
	}
	file, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()

	upload, err := h.spaces.UploadSource(c.Request.Context(), rd.UserID, topic, fh.Filename, fh.Header.Get("Content-Type"), file)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, upload)
}

func parseSpaceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_learning_space_id", err)
		return 0, false
	}
	return id, true
}
