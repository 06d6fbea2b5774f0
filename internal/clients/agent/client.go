package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/utils"
)

// Client talks to the external agent process that computes the artifacts.
// Invoke is fire-and-acknowledge: success means the agent accepted the job,
// nothing more. GenerateAudioOverview is the one synchronous path, used by
// the user-initiated regenerate action.
type Client interface {
	Invoke(ctx context.Context, spaceID int64, userID uuid.UUID) error
	GenerateAudioOverview(ctx context.Context, spaceID int64, userID uuid.UUID) (string, error)
}

type httpClient struct {
	log     *logger.Logger
	baseURL string
	hc      *http.Client
}

func NewHTTPClient(log *logger.Logger) (Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(utils.GetEnv("AGENT_API_URL", "", log)), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing AGENT_API_URL")
	}
	timeout := utils.GetEnvAsInt("AGENT_API_TIMEOUT_SECONDS", 120, log)
	return &httpClient{
		log:     log.With("client", "AgentClient"),
		baseURL: baseURL,
		hc:      &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}, nil
}

type workflowRequest struct {
	LearningSpaceID int64     `json:"learning_space_id"`
	UserID          uuid.UUID `json:"user_id"`
}

func (c *httpClient) Invoke(ctx context.Context, spaceID int64, userID uuid.UUID) error {
	body, err := c.post(ctx, "/api/workflows/invoke", workflowRequest{
		LearningSpaceID: spaceID,
		UserID:          userID,
	})
	if err != nil {
		return fmt.Errorf("invoke agent workflow: %w", err)
	}
	_ = body
	return nil
}

type audioResponse struct {
	Success  bool   `json:"success"`
	AudioURL string `json:"audio_url"`
	Error    string `json:"error"`
	Message  string `json:"message"`
}

func (c *httpClient) GenerateAudioOverview(ctx context.Context, spaceID int64, userID uuid.UUID) (string, error) {
	body, err := c.post(ctx, "/api/workflows/audio-summary", workflowRequest{
		LearningSpaceID: spaceID,
		UserID:          userID,
	})
	if err != nil {
		return "", fmt.Errorf("generate audio overview: %w", err)
	}
	var resp audioResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("generate audio overview: decode response: %w", err)
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = resp.Message
		}
		if reason == "" {
			reason = "agent reported failure"
		}
		return "", fmt.Errorf("generate audio overview: %s", reason)
	}
	if strings.TrimSpace(resp.AudioURL) == "" {
		return "", fmt.Errorf("generate audio overview: agent returned empty url")
	}
	return resp.AudioURL, nil
}

func (c *httpClient) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("agent request failed", "path", path, "status", resp.StatusCode)
		return nil, fmt.Errorf("agent returned status %d", resp.StatusCode)
	}
	return body, nil
}
