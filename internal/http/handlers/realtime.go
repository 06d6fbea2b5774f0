package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/studyfold/studyspace-backend/internal/http/response"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/realtime"
	"github.com/studyfold/studyspace-backend/internal/requestdata"
)

// RealtimeHandler owns the SSE connections. One stream per session;
// channel membership is managed through explicit subscribe/unsubscribe
// calls so a viewer holds exactly the (space, kind) channels it renders.
type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.Client // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.Client),
	}
}

func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "missing_session_id", nil)
		return
	}
	sessionID := rd.SessionID

	h.mu.Lock()
	// A reconnecting session replaces its previous stream.
	if existing, ok := h.clients[sessionID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, sessionID)
	}
	client := h.hub.NewClient(rd.UserID)
	h.clients[sessionID] = client
	h.mu.Unlock()

	h.log.Debug("SSE stream open", "user_id", rd.UserID.String(), "session_id", sessionID.String())
	h.hub.ServeHTTP(c.Writer, c.Request, client)

	// Disconnect releases every channel this view held, exactly once. A
	// replaced stream must not evict its session's new client: only remove
	// the registry entry if it is still ours.
	h.mu.Lock()
	if h.clients[sessionID] == client {
		delete(h.clients, sessionID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

type channelRequest struct {
	Channel string `json:"channel" binding:"required"`
}

func (h *RealtimeHandler) Subscribe(c *gin.Context) {
	client, req, ok := h.sessionClient(c)
	if !ok {
		return
	}
	h.hub.AddChannel(client, req.Channel)
	response.RespondOK(c, gin.H{"subscribed": req.Channel})
}

func (h *RealtimeHandler) Unsubscribe(c *gin.Context) {
	client, req, ok := h.sessionClient(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, req.Channel)
	response.RespondOK(c, gin.H{"unsubscribed": req.Channel})
}

func (h *RealtimeHandler) sessionClient(c *gin.Context) (*realtime.Client, channelRequest, bool) {
	var req channelRequest
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil || rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return nil, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Channel == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_channel", err)
		return nil, req, false
	}

	h.mu.RLock()
	client, exists := h.clients[rd.SessionID]
	h.mu.RUnlock()
	if !exists {
		// Subscribe rejected: the caller keeps rendering its pending state,
		// generation continues server-side regardless.
		response.RespondError(c, http.StatusConflict, "no_active_stream", nil)
		return nil, req, false
	}
	return client, req, true
}
