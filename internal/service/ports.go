package service

import (
	"context"

	"github.com/Skotchmaster/news_guard/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]models.User, int64, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

type RecordStore interface {
	CreateClassification(ctx context.Context, rec *models.ClassificationRecord) error
	CreateGeneration(ctx context.Context, rec *models.GenerationRecord) error
	ListClassifications(ctx context.Context, userID uint, offset, limit int) ([]models.ClassificationRecord, int64, error)
	ListGenerations(ctx context.Context, userID uint, offset, limit int) ([]models.GenerationRecord, int64, error)
}

// LocalClassifier returns the raw label of the in-house model.
type LocalClassifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// ExternalModel is the generative model used both for verdicts and for
// article generation.
type ExternalModel interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// EventPublisher delivers provenance events keyed by user.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

type HistoryIndex interface {
	IndexClassification(ctx context.Context, rec models.ClassificationRecord) error
	IndexGeneration(ctx context.Context, rec models.GenerationRecord) error
	Search(ctx context.Context, userID uint, query string, from, size int) (int64, []models.HistoryHit, error)
}

// Limiter caps concurrent external calls per user. ok is false when no slot
// is free; err means the limiter itself failed.
type Limiter interface {
	Acquire(ctx context.Context, userID uint) (ok bool, release func(), err error)
}
