package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/studyfold/studyspace-backend/internal/artifact"
	"github.com/studyfold/studyspace-backend/internal/clients/agent"
	"github.com/studyfold/studyspace-backend/internal/clients/gcp"
	"github.com/studyfold/studyspace-backend/internal/platform/apierr"
	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/realtime"
	"github.com/studyfold/studyspace-backend/internal/realtime/bus"
	"github.com/studyfold/studyspace-backend/internal/repos"
	"github.com/studyfold/studyspace-backend/internal/types"
)

// ErrTriggerFailed wraps agent-side rejection of the generation trigger.
// The learning space row persists in all-pending state; retry is a user
// decision, never automatic.
var ErrTriggerFailed = errors.New("agent trigger failed")

type SourceUpload struct {
	PublicURL string `json:"public_url"`
	Path      string `json:"path"`
}

type LearningSpaceService interface {
	// Create persists the space and fires the generation trigger exactly
	// once. On trigger failure the created space is returned alongside an
	// error wrapping ErrTriggerFailed.
	Create(ctx context.Context, userID uuid.UUID, topic string, pdfSource, audioSource *string) (*types.LearningSpace, error)
	// Retrigger re-fires the generation trigger for an existing space, the
	// user-driven retry after a failed create trigger. Concurrent retries
	// for the same space collapse into one agent call.
	Retrigger(ctx context.Context, userID uuid.UUID, id int64) error
	Get(ctx context.Context, userID uuid.UUID, id int64) (*types.LearningSpace, error)
	List(ctx context.Context, userID uuid.UUID) ([]*types.LearningSpace, error)
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
	UploadSource(ctx context.Context, userID uuid.UUID, topic, filename, contentType string, file io.Reader) (*SourceUpload, error)
}

type learningSpaceService struct {
	db     *gorm.DB
	log    *logger.Logger
	spaces repos.LearningSpaceRepo
	agent  agent.Client
	bucket gcp.BucketService
	feed   bus.Bus

	triggers singleflight.Group
}

func NewLearningSpaceService(
	db *gorm.DB,
	baseLog *logger.Logger,
	spaces repos.LearningSpaceRepo,
	agentClient agent.Client,
	bucket gcp.BucketService,
	feed bus.Bus,
) LearningSpaceService {
	return &learningSpaceService{
		db:     db,
		log:    baseLog.With("service", "LearningSpaceService"),
		spaces: spaces,
		agent:  agentClient,
		bucket: bucket,
		feed:   feed,
	}
}

func (s *learningSpaceService) Create(ctx context.Context, userID uuid.UUID, topic string, pdfSource, audioSource *string) (*types.LearningSpace, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing user id"))
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_topic", fmt.Errorf("topic is required"))
	}

	space, err := s.spaces.Create(ctx, nil, &types.LearningSpace{
		UserID:      userID,
		Topic:       topic,
		PDFSource:   pdfSource,
		AudioSource: audioSource,
	})
	if err != nil {
		return nil, fmt.Errorf("create learning space: %w", err)
	}

	if err := s.invokeOnce(ctx, space.ID, userID); err != nil {
		s.log.Error("generation trigger rejected", "space_id", space.ID, "user_id", userID.String(), "error", err)
		return space, fmt.Errorf("%w: %v", ErrTriggerFailed, err)
	}
	s.log.Info("generation trigger accepted", "space_id", space.ID, "user_id", userID.String())
	return space, nil
}

func (s *learningSpaceService) Retrigger(ctx context.Context, userID uuid.UUID, id int64) error {
	space, err := ownedSpace(ctx, s.spaces, userID, id)
	if err != nil {
		return err
	}
	if err := s.invokeOnce(ctx, space.ID, userID); err != nil {
		s.log.Error("generation retrigger rejected", "space_id", space.ID, "user_id", userID.String(), "error", err)
		return fmt.Errorf("%w: %v", ErrTriggerFailed, err)
	}
	s.log.Info("generation retriggered", "space_id", space.ID, "user_id", userID.String())
	return nil
}

// invokeOnce coalesces concurrent trigger attempts per space, so a user
// hammering retry while a trigger is in flight asks the agent exactly once.
func (s *learningSpaceService) invokeOnce(ctx context.Context, spaceID int64, userID uuid.UUID) error {
	_, err, _ := s.triggers.Do(strconv.FormatInt(spaceID, 10), func() (interface{}, error) {
		return nil, s.agent.Invoke(ctx, spaceID, userID)
	})
	return err
}

func (s *learningSpaceService) Get(ctx context.Context, userID uuid.UUID, id int64) (*types.LearningSpace, error) {
	return ownedSpace(ctx, s.spaces, userID, id)
}

func (s *learningSpaceService) List(ctx context.Context, userID uuid.UUID) ([]*types.LearningSpace, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing user id"))
	}
	return s.spaces.ListByUser(ctx, nil, userID)
}

func (s *learningSpaceService) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	// Ownership is the only guard: deletion is unconditional with respect
	// to in-flight generation.
	if _, err := ownedSpace(ctx, s.spaces, userID, id); err != nil {
		return err
	}
	if err := s.spaces.Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("delete learning space %d: %w", id, err)
	}
	s.announceDeleted(ctx, id)
	s.log.Info("learning space deleted", "space_id", id, "user_id", userID.String())
	return nil
}

// announceDeleted tells open viewers on every artifact channel that the row
// is gone so they can tear down. Best effort, same as artifact publishes.
func (s *learningSpaceService) announceDeleted(ctx context.Context, id int64) {
	if s.feed == nil {
		return
	}
	for _, kind := range artifact.Kinds() {
		msg := realtime.Message{
			Channel: artifact.Channel(id, kind),
			Event:   realtime.EventLearningSpaceDeleted,
		}
		// Keep going on failure: each kind's viewers get their own chance.
		if err := s.feed.Publish(ctx, msg); err != nil {
			s.log.Warn("delete announce failed", "space_id", id, "kind", string(kind), "error", err)
		}
	}
}

func (s *learningSpaceService) UploadSource(ctx context.Context, userID uuid.UUID, topic, filename, contentType string, file io.Reader) (*SourceUpload, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing user id"))
	}
	if s.bucket == nil {
		return nil, apierr.New(http.StatusServiceUnavailable, "storage_unavailable", fmt.Errorf("no bucket service configured"))
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_filename", fmt.Errorf("filename is required"))
	}

	key := fmt.Sprintf("sources/%s/%s/%s", userID.String(), slugify(topic), filename)
	if err := s.bucket.UploadFile(ctx, key, file, contentType); err != nil {
		return nil, fmt.Errorf("upload source: %w", err)
	}
	return &SourceUpload{
		PublicURL: s.bucket.GetPublicURL(key),
		Path:      key,
	}, nil
}

// ownedSpace loads a space and enforces the ownership check shared by every
// per-space operation.
func ownedSpace(ctx context.Context, spaces repos.LearningSpaceRepo, userID uuid.UUID, id int64) (*types.LearningSpace, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing user id"))
	}
	space, err := spaces.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load learning space %d: %w", id, err)
	}
	if space == nil {
		return nil, apierr.New(http.StatusNotFound, "not_found", fmt.Errorf("learning space %d not found", id))
	}
	if space.UserID != userID {
		return nil, apierr.New(http.StatusForbidden, "not_owner", fmt.Errorf("learning space %d is not owned by caller", id))
	}
	return space, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "space"
	}
	return out
}
