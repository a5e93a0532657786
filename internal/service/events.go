package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/pkg/logging"
)

const (
	EventUserRegistered         = "user_registered"
	EventClassificationRecorded = "classification_recorded"
	EventGenerationRecorded     = "generation_recorded"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	RecordID   uint      `json:"record_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

const sideEffectTimeout = 3 * time.Second

// Background runs post-commit side effects off the request goroutine so a
// slow broker or index does not delay the response. A nil *Background runs
// them inline.
type Background struct {
	wg sync.WaitGroup
}

// Wait blocks until every started side effect has finished or ctx ends.
func (b *Background) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// afterCommit runs fn detached from request cancellation. Failures are
// logged and dropped; the committed record stays authoritative.
func (b *Background) afterCommit(ctx context.Context, what string, fn func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	run := func() {
		bctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
		defer cancel()
		if err := fn(bctx); err != nil {
			logging.FromContext(ctx).Warn("side_effect_failed", "what", what, "error", err)
		}
	}
	if b == nil {
		run()
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		run()
	}()
}

func (b *Background) publish(ctx context.Context, p EventPublisher, typ string, userID, recordID uint, data any) {
	if p == nil {
		return
	}
	ev := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	b.afterCommit(ctx, "publish "+typ, func(ctx context.Context) error {
		return p.PublishEvent(ctx, strconv.FormatUint(uint64(userID), 10), ev)
	})
}

type classificationData struct {
	CustomPrediction string `json:"custom_prediction"`
	GeminiPrediction string `json:"gemini_prediction"`
}

type generationData struct {
	Context string `json:"context"`
	Style   string `json:"style"`
	Length  string `json:"length"`
}

func classificationEventData(rec *models.ClassificationRecord) classificationData {
	return classificationData{CustomPrediction: rec.CustomPrediction, GeminiPrediction: rec.GeminiPrediction}
}

func generationEventData(rec *models.GenerationRecord) generationData {
	return generationData{Context: rec.Context, Style: rec.Style, Length: rec.Length}
}
