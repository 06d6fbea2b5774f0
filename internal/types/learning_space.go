package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LearningSpace is one user's topic-scoped container for uploaded source
// material and the five artifact slots the agent fills in asynchronously.
// Every slot is NULL at creation and is written at most by the agent; the
// row id is the only key the change feed scopes on.
type LearningSpace struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"learning_space_id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Topic           string         `gorm:"column:topic;not null" json:"topic"`
	PDFSource       *string        `gorm:"column:pdf_source" json:"pdf_source,omitempty"`
	AudioSource     *string        `gorm:"column:audio_source" json:"audio_source,omitempty"`
	SummaryNotes    datatypes.JSON `gorm:"column:summary_notes;type:jsonb" json:"summary_notes,omitempty"`
	Mindmap         *string        `gorm:"column:mindmap" json:"mindmap,omitempty"`
	AudioOverview   *string        `gorm:"column:audio_overview" json:"audio_overview,omitempty"`
	AudioVersion    int64          `gorm:"column:audio_version;not null;default:0" json:"audio_version"`
	Quiz            datatypes.JSON `gorm:"column:quiz;type:jsonb" json:"quiz,omitempty"`
	Recommendations datatypes.JSON `gorm:"column:recommendations;type:jsonb" json:"recommendations,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
}

func (LearningSpace) TableName() string { return "learning_space" }
