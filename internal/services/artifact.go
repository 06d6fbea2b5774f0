package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/studyfold/studyspace-backend/internal/artifact"
	"github.com/studyfold/studyspace-backend/internal/clients/agent"
	"github.com/studyfold/studyspace-backend/internal/platform/apierr"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/realtime"
	"github.com/studyfold/studyspace-backend/internal/realtime/bus"
	"github.com/studyfold/studyspace-backend/internal/repos"
	"github.com/studyfold/studyspace-backend/internal/types"
)

// ArtifactService is the write side of the change feed: every slot
// mutation goes through Apply, which validates the payload, persists it and
// publishes the fresh row snapshot on the (space, kind) channel.
type ArtifactService interface {
	Apply(ctx context.Context, spaceID int64, kind artifact.Kind, payload json.RawMessage) (*types.LearningSpace, error)
	// GenerateAudioOverview runs the synchronous regenerate path. Failure
	// leaves the stored slot untouched.
	GenerateAudioOverview(ctx context.Context, userID uuid.UUID, spaceID int64) (string, error)
	Status(ctx context.Context, userID uuid.UUID, spaceID int64) (map[artifact.Kind]artifact.State, error)
}

type artifactService struct {
	db     *gorm.DB
	log    *logger.Logger
	spaces repos.LearningSpaceRepo
	agent  agent.Client
	feed   bus.Bus
}

func NewArtifactService(
	db *gorm.DB,
	baseLog *logger.Logger,
	spaces repos.LearningSpaceRepo,
	agentClient agent.Client,
	feed bus.Bus,
) ArtifactService {
	return &artifactService{
		db:     db,
		log:    baseLog.With("service", "ArtifactService"),
		spaces: spaces,
		agent:  agentClient,
		feed:   feed,
	}
}

type urlPayload struct {
	URL string `json:"url"`
}

func (s *artifactService) Apply(ctx context.Context, spaceID int64, kind artifact.Kind, payload json.RawMessage) (*types.LearningSpace, error) {
	if len(payload) == 0 {
		return nil, apierr.New(http.StatusBadRequest, "empty_artifact_payload", fmt.Errorf("empty payload for %s", kind))
	}

	var err error
	switch kind {
	case artifact.KindSummaryNotes:
		err = s.applyJSON(ctx, spaceID, "summary_notes", payload, func(raw json.RawMessage) error {
			var notes types.SummaryNotes
			if uerr := json.Unmarshal(raw, &notes); uerr != nil {
				return uerr
			}
			return notes.Validate()
		})
	case artifact.KindQuiz:
		err = s.applyJSON(ctx, spaceID, "quiz", payload, func(raw json.RawMessage) error {
			var quiz types.Quiz
			if uerr := json.Unmarshal(raw, &quiz); uerr != nil {
				return uerr
			}
			return quiz.Validate()
		})
	case artifact.KindRecommendations:
		err = s.applyJSON(ctx, spaceID, "recommendations", payload, func(raw json.RawMessage) error {
			var recs types.RecommendationList
			if uerr := json.Unmarshal(raw, &recs); uerr != nil {
				return uerr
			}
			return recs.Validate()
		})
	case artifact.KindMindmap:
		var url string
		url, err = parseURLPayload(payload)
		if err == nil {
			err = s.spaces.UpdateArtifact(ctx, nil, spaceID, "mindmap", url)
		}
	case artifact.KindAudioOverview:
		var url string
		url, err = parseURLPayload(payload)
		if err == nil {
			_, err = s.spaces.BumpAudioOverview(ctx, nil, spaceID, url)
		}
	default:
		return nil, apierr.New(http.StatusBadRequest, "unknown_artifact_kind", fmt.Errorf("unknown artifact kind %q", kind))
	}
	if err != nil {
		return nil, err
	}

	snapshot, err := s.spaces.GetByID(ctx, nil, spaceID)
	if err != nil {
		return nil, fmt.Errorf("reload learning space %d: %w", spaceID, err)
	}
	if snapshot == nil {
		return nil, apierr.New(http.StatusNotFound, "not_found", fmt.Errorf("learning space %d not found", spaceID))
	}
	s.publish(ctx, spaceID, kind, snapshot)
	return snapshot, nil
}

func (s *artifactService) applyJSON(ctx context.Context, spaceID int64, column string, payload json.RawMessage, validate func(json.RawMessage) error) error {
	if err := validate(payload); err != nil {
		return apierr.New(http.StatusUnprocessableEntity, "invalid_artifact_payload", fmt.Errorf("%s: %w", column, err))
	}
	if err := s.spaces.UpdateArtifact(ctx, nil, spaceID, column, datatypes.JSON(payload)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.New(http.StatusNotFound, "not_found", fmt.Errorf("learning space %d not found", spaceID))
		}
		return fmt.Errorf("persist %s for space %d: %w", column, spaceID, err)
	}
	return nil
}

func parseURLPayload(payload json.RawMessage) (string, error) {
	var body urlPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", apierr.New(http.StatusUnprocessableEntity, "invalid_artifact_payload", fmt.Errorf("url payload: %w", err))
	}
	if strings.TrimSpace(body.URL) == "" {
		return "", apierr.New(http.StatusUnprocessableEntity, "invalid_artifact_payload", fmt.Errorf("url payload: missing url"))
	}
	return body.URL, nil
}

// publish pushes the fresh snapshot to feed subscribers. A publish failure
// degrades delivery, not persistence: subscribers that miss the event stay
// in their "still generating" state and recover from the next snapshot
// fetch, so the ingest call itself still succeeds.
func (s *artifactService) publish(ctx context.Context, spaceID int64, kind artifact.Kind, snapshot *types.LearningSpace) {
	if s.feed == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		s.log.Error("failed to marshal snapshot for feed", "space_id", spaceID, "kind", string(kind), "error", err)
		return
	}
	msg := realtime.Message{
		Channel: artifact.Channel(spaceID, kind),
		Event:   realtime.EventArtifactUpdated,
		Data:    raw,
	}
	if err := s.feed.Publish(ctx, msg); err != nil {
		s.log.Warn("feed publish failed; subscribers stay pending until next fetch", "space_id", spaceID, "kind", string(kind), "error", err)
	}
}

func (s *artifactService) GenerateAudioOverview(ctx context.Context, userID uuid.UUID, spaceID int64) (string, error) {
	if _, err := ownedSpace(ctx, s.spaces, userID, spaceID); err != nil {
		return "", err
	}
	url, err := s.agent.GenerateAudioOverview(ctx, spaceID, userID)
	if err != nil {
		return "", apierr.New(http.StatusBadGateway, "audio_generation_failed", err)
	}

	version, err := s.spaces.BumpAudioOverview(ctx, nil, spaceID, url)
	if err != nil {
		return "", fmt.Errorf("persist audio overview for space %d: %w", spaceID, err)
	}
	s.log.Info("audio overview regenerated", "space_id", spaceID, "audio_version", version)

	snapshot, err := s.spaces.GetByID(ctx, nil, spaceID)
	if err == nil && snapshot != nil {
		s.publish(ctx, spaceID, artifact.KindAudioOverview, snapshot)
	}
	return url, nil
}

func (s *artifactService) Status(ctx context.Context, userID uuid.UUID, spaceID int64) (map[artifact.Kind]artifact.State, error) {
	space, err := ownedSpace(ctx, s.spaces, userID, spaceID)
	if err != nil {
		return nil, err
	}
	out := make(map[artifact.Kind]artifact.State, len(artifact.Kinds()))
	for _, kind := range artifact.Kinds() {
		val, derr := artifact.Decode(kind, space)
		if derr != nil {
			// A malformed slot reads as still generating, same as the
			// watcher's mount rule, but it is a producer bug worth noise.
			s.log.Error("malformed artifact slot", "space_id", spaceID, "kind", string(kind), "error", derr)
			out[kind] = artifact.StatePending
			continue
		}
		if val != nil {
			out[kind] = artifact.StateReady
		} else {
			out[kind] = artifact.StatePending
		}
	}
	return out, nil
}
