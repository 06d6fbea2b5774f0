package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyfold/studyspace-backend/internal/platform/logger"
	"github.com/studyfold/studyspace-backend/internal/types"
)

type LearningSpaceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, space *types.LearningSpace) (*types.LearningSpace, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.LearningSpace, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.LearningSpace, error)
	Delete(ctx context.Context, tx *gorm.DB, id int64) error
	// UpdateArtifact overwrites one artifact column. The column name must be
	// one of the five slot columns; values are already validated upstream.
	UpdateArtifact(ctx context.Context, tx *gorm.DB, id int64, column string, value interface{}) error
	// BumpAudioOverview writes the audio URL and advances the slot's
	// monotonic version in one transaction, returning the new version.
	BumpAudioOverview(ctx context.Context, tx *gorm.DB, id int64, url string) (int64, error)
}

type learningSpaceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningSpaceRepo(db *gorm.DB, baseLog *logger.Logger) LearningSpaceRepo {
	return &learningSpaceRepo{
		db:  db,
		log: baseLog.With("repo", "LearningSpaceRepo"),
	}
}

var artifactColumns = map[string]bool{
	"summary_notes":   true,
	"mindmap":         true,
	"audio_overview":  true,
	"quiz":            true,
	"recommendations": true,
}

func (r *learningSpaceRepo) Create(ctx context.Context, tx *gorm.DB, space *types.LearningSpace) (*types.LearningSpace, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if space == nil {
		return nil, fmt.Errorf("no learning space given")
	}
	if err := transaction.WithContext(ctx).Create(space).Error; err != nil {
		return nil, err
	}
	return space, nil
}

func (r *learningSpaceRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.LearningSpace, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var space types.LearningSpace
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *learningSpaceRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.LearningSpace, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.LearningSpace
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *learningSpaceRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.LearningSpace{}).Error
}

func (r *learningSpaceRepo) UpdateArtifact(ctx context.Context, tx *gorm.DB, id int64, column string, value interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if !artifactColumns[column] {
		return fmt.Errorf("not an artifact column: %q", column)
	}
	res := transaction.WithContext(ctx).
		Model(&types.LearningSpace{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *learningSpaceRepo) BumpAudioOverview(ctx context.Context, tx *gorm.DB, id int64, url string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var version int64
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		res := txx.Model(&types.LearningSpace{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"audio_overview": url,
				"audio_version":  gorm.Expr("audio_version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		var fresh types.LearningSpace
		if err := txx.Select("audio_version").Where("id = ?", id).Take(&fresh).Error; err != nil {
			return err
		}
		version = fresh.AudioVersion
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}
