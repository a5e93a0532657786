package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/internal/util"
	"github.com/Skotchmaster/news_guard/pkg/logging"
)

type NewsService struct {
	Records    RecordStore
	Aggregator *Aggregator
	Model      ExternalModel

	GenerateTemperature float32
	GenerateTimeout     time.Duration

	Limiter    Limiter
	Events     EventPublisher
	Index      HistoryIndex
	Background *Background
}

// acquire reserves an external-call slot for user. A broken limiter lets the
// call through.
func (s *NewsService) acquire(ctx context.Context, user *models.User) (bool, func()) {
	if s.Limiter == nil {
		return true, func() {}
	}
	ok, release, err := s.Limiter.Acquire(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Warn("limiter_unavailable", "user_id", user.ID, "error", err)
		return true, func() {}
	}
	if !ok {
		return false, func() {}
	}
	return true, release
}

// Classify runs both classifiers on text and records the pair for user.
// Nothing is stored when the request is cancelled before both verdicts are in.
func (s *NewsService) Classify(ctx context.Context, user *models.User, text string) (*models.ClassificationRecord, error) {
	l := logging.FromContext(ctx).With("svc", "news.classify", "user_id", user.ID)

	if strings.TrimSpace(text) == "" {
		return nil, validationf("news text is required")
	}

	allowed, release := s.acquire(ctx, user)
	defer release()
	if !allowed {
		l.Warn("external_slot_unavailable", "reason", "limit reached")
	}

	verdicts, err := s.Aggregator.Aggregate(ctx, text, allowed)
	if cerr := ctx.Err(); cerr != nil {
		l.Info("classify_cancelled", "error", cerr)
		return nil, cerr
	}
	if err != nil {
		l.Error("classify_error", "status", 500, "error", err)
		return nil, err
	}

	rec := &models.ClassificationRecord{
		UserID:           user.ID,
		NewsText:         text,
		CustomPrediction: verdicts.Local,
		GeminiPrediction: verdicts.External,
	}
	if err := s.Records.CreateClassification(ctx, rec); err != nil {
		l.Error("classify_error", "status", 503, "reason", "cannot persist record", "error", err)
		return nil, storeErr(err)
	}

	l.Info("classification_recorded", "record_id", rec.ID, "custom", rec.CustomPrediction, "gemini", rec.GeminiPrediction)
	s.Background.publish(ctx, s.Events, EventClassificationRecorded, user.ID, rec.ID, classificationEventData(rec))
	if s.Index != nil {
		s.Background.afterCommit(ctx, "index classification", func(ctx context.Context) error {
			return s.Index.IndexClassification(ctx, *rec)
		})
	}
	return rec, nil
}

// Generate asks the external model for an article. Unlike classification,
// an external failure here fails the whole request.
func (s *NewsService) Generate(ctx context.Context, user *models.User, req GenerateRequest) (*models.GenerationRecord, error) {
	l := logging.FromContext(ctx).With("svc", "news.generate", "user_id", user.ID)

	prompt, err := BuildGenerationPrompt(req)
	if err != nil {
		return nil, err
	}

	allowed, release := s.acquire(ctx, user)
	defer release()
	if !allowed {
		l.Warn("generate_error", "status", 429, "reason", "limit reached")
		return nil, ErrRateLimited
	}

	callCtx := ctx
	if s.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.GenerateTimeout)
		defer cancel()
	}

	text, err := s.Model.Generate(callCtx, prompt, s.GenerateTemperature)
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if err != nil {
		l.Warn("generate_error", "status", 502, "error", err)
		return nil, errors.Join(ErrExternalServiceDegraded, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		l.Warn("generate_error", "status", 502, "reason", "empty response")
		return nil, ErrExternalServiceDegraded
	}

	rec := &models.GenerationRecord{
		UserID:            user.ID,
		Context:           strings.TrimSpace(req.Context),
		Style:             req.Style,
		Length:            req.Length,
		AdditionalContext: strings.TrimSpace(req.AdditionalContext),
		GeneratedText:     text,
	}
	if err := s.Records.CreateGeneration(ctx, rec); err != nil {
		l.Error("generate_error", "status", 503, "reason", "cannot persist record", "error", err)
		return nil, storeErr(err)
	}

	l.Info("generation_recorded", "record_id", rec.ID)
	s.Background.publish(ctx, s.Events, EventGenerationRecorded, user.ID, rec.ID, generationEventData(rec))
	if s.Index != nil {
		s.Background.afterCommit(ctx, "index generation", func(ctx context.Context) error {
			return s.Index.IndexGeneration(ctx, *rec)
		})
	}
	return rec, nil
}

type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Size  int
}

func (s *NewsService) ListClassifications(ctx context.Context, user *models.User, page, size int) (*Page[models.ClassificationRecord], error) {
	page, size = util.Normalize(page, size)
	from, limit := util.Calculate(page, size)

	items, total, err := s.Records.ListClassifications(ctx, user.ID, from, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return &Page[models.ClassificationRecord]{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *NewsService) ListGenerations(ctx context.Context, user *models.User, page, size int) (*Page[models.GenerationRecord], error) {
	page, size = util.Normalize(page, size)
	from, limit := util.Calculate(page, size)

	items, total, err := s.Records.ListGenerations(ctx, user.ID, from, limit)
	if err != nil {
		return nil, storeErr(err)
	}
	return &Page[models.GenerationRecord]{Items: items, Total: total, Page: page, Size: size}, nil
}

// SearchHistory runs a full-text query over user's own indexed records.
func (s *NewsService) SearchHistory(ctx context.Context, user *models.User, query string, page, size int) (*Page[models.HistoryHit], error) {
	if s.Index == nil {
		return nil, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationf("query is required")
	}
	page, size = util.Normalize(page, size)
	from, limit := util.Calculate(page, size)

	total, hits, err := s.Index.Search(ctx, user.ID, query, from, limit)
	if err != nil {
		logging.FromContext(ctx).Warn("search_error", "status", 502, "error", err)
		return nil, errors.Join(ErrExternalServiceDegraded, err)
	}
	return &Page[models.HistoryHit]{Items: hits, Total: total, Page: page, Size: size}, nil
}
