package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/news_guard/internal/models"
)

func newNewsService(env *testEnv, local LocalClassifier, model ExternalModel) *NewsService {
	return &NewsService{
		Records: env.repo,
		Aggregator: &Aggregator{
			Local:           local,
			External:        model,
			ExternalTimeout: time.Second,
		},
		Model:               model,
		GenerateTemperature: 0.7,
		Events:              env.events,
	}
}

func countClassifications(t *testing.T, env *testEnv) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.repo.DB.Model(&models.ClassificationRecord{}).Count(&n).Error)
	return n
}

func TestClassify_BothVerdictsRecorded(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	svc := newNewsService(env, fixedLocal("true"), fixedModel("Real headline."))

	rec, err := svc.Classify(context.Background(), alice, "Local council approves new park")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, rec.UserID)
	assert.Equal(t, models.VerdictTrue, rec.CustomPrediction)
	assert.Equal(t, models.VerdictTrue, rec.GeminiPrediction)

	page, err := svc.ListClassifications(context.Background(), alice, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, rec.ID, page.Items[0].ID)
	assert.Contains(t, env.events.Types(), EventClassificationRecorded)
}

func TestClassify_ExternalFailureIsIndeterminate(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	svc := newNewsService(env, fixedLocal("fake"), failingModel(errBoom))

	rec, err := svc.Classify(context.Background(), bob, "Aliens endorse candidate")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictFake, rec.CustomPrediction)
	assert.Equal(t, models.VerdictIndeterminate, rec.GeminiPrediction)
	assert.EqualValues(t, 1, countClassifications(t, env))
}

func TestClassify_ExternalTimeoutIsIndeterminate(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	slow := modelFunc(func(ctx context.Context, prompt string, temperature float32) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	svc := newNewsService(env, fixedLocal("true"), slow)
	svc.Aggregator.ExternalTimeout = 20 * time.Millisecond

	rec, err := svc.Classify(context.Background(), bob, "text")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictIndeterminate, rec.GeminiPrediction)
}

func TestClassify_ExternalPanicIsIndeterminate(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	panicky := modelFunc(func(ctx context.Context, prompt string, temperature float32) (string, error) {
		panic("sdk bug")
	})
	svc := newNewsService(env, fixedLocal("true"), panicky)

	rec, err := svc.Classify(context.Background(), bob, "text")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictIndeterminate, rec.GeminiPrediction)
}

func TestClassify_LocalFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")

	failing := localFunc(func(ctx context.Context, text string) (string, error) { return "", errBoom })
	svc := newNewsService(env, failing, fixedModel("fake"))
	_, err := svc.Classify(context.Background(), bob, "text")
	require.ErrorIs(t, err, ErrLocalClassifier)
	require.ErrorIs(t, err, errBoom)

	svc = newNewsService(env, fixedLocal("maybe"), fixedModel("fake"))
	_, err = svc.Classify(context.Background(), bob, "text")
	require.ErrorIs(t, err, ErrLocalClassifier)

	assert.EqualValues(t, 0, countClassifications(t, env))
}

func TestClassify_RunsBothConcurrently(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")

	localStarted := make(chan struct{})
	externalStarted := make(chan struct{})
	wait := func(ch <-chan struct{}) bool {
		select {
		case <-ch:
			return true
		case <-time.After(2 * time.Second):
			return false
		}
	}

	local := localFunc(func(ctx context.Context, text string) (string, error) {
		close(localStarted)
		if !wait(externalStarted) {
			return "", errBoom
		}
		return "true", nil
	})
	model := modelFunc(func(ctx context.Context, prompt string, temperature float32) (string, error) {
		close(externalStarted)
		if !wait(localStarted) {
			return "", errBoom
		}
		return "FAKE", nil
	})
	svc := newNewsService(env, local, model)
	svc.Aggregator.ExternalTimeout = 5 * time.Second

	rec, err := svc.Classify(context.Background(), bob, "text")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictTrue, rec.CustomPrediction)
	assert.Equal(t, models.VerdictFake, rec.GeminiPrediction)
}

func TestClassify_CancelledRequestPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	model := modelFunc(func(ctx context.Context, prompt string, temperature float32) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	})
	svc := newNewsService(env, fixedLocal("true"), model)

	_, err := svc.Classify(ctx, bob, "text")
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, countClassifications(t, env))
}

func TestClassify_EmptyText(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	svc := newNewsService(env, fixedLocal("true"), fixedModel("true"))

	_, err := svc.Classify(context.Background(), bob, "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClassify_LimiterExhaustedSkipsExternal(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	called := false
	model := modelFunc(func(ctx context.Context, prompt string, temperature float32) (string, error) {
		called = true
		return "true", nil
	})
	svc := newNewsService(env, fixedLocal("fake"), model)
	svc.Limiter = &fakeLimiter{ok: false}

	rec, err := svc.Classify(context.Background(), bob, "text")
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, models.VerdictIndeterminate, rec.GeminiPrediction)
}

func TestClassify_BrokenLimiterFailsOpen(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	svc := newNewsService(env, fixedLocal("fake"), fixedModel("fake"))
	svc.Limiter = &fakeLimiter{err: errBoom}

	rec, err := svc.Classify(context.Background(), bob, "text")
	require.NoError(t, err)
	assert.Equal(t, models.VerdictFake, rec.GeminiPrediction)
}

func TestClassify_SideEffectFailuresDoNotFailRequest(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	env.events.err = errBoom
	idx := &fakeIndex{err: errBoom}
	svc := newNewsService(env, fixedLocal("true"), fixedModel("true"))
	svc.Index = idx

	_, err := svc.Classify(context.Background(), bob, "text")
	require.NoError(t, err)
	assert.Len(t, idx.classes, 1)
	assert.EqualValues(t, 1, countClassifications(t, env))
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	fakePublisher
	release chan struct{}
}

func (p *blockingPublisher) PublishEvent(ctx context.Context, key string, event any) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.fakePublisher.PublishEvent(ctx, key, event)
}

func TestClassify_SideEffectsDoNotDelayResponse(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "bob")
	pub := &blockingPublisher{release: make(chan struct{})}
	bg := &Background{}
	svc := newNewsService(env, fixedLocal("true"), fixedModel("true"))
	svc.Events = pub
	svc.Background = bg

	done := make(chan error, 1)
	go func() {
		_, err := svc.Classify(context.Background(), bob, "text")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("classify waited for the event publisher")
	}
	assert.Empty(t, pub.Types())

	close(pub.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bg.Wait(ctx))
	assert.Equal(t, []string{EventClassificationRecorded}, pub.Types())
}

func TestGenerate_RecordsArticle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	var gotPrompt string
	var gotTemp float32
	model := modelFunc(func(ctx context.Context, prompt string, temperature float32) (string, error) {
		gotPrompt, gotTemp = prompt, temperature
		return "  The match ended in a draw.  ", nil
	})
	limiter := &fakeLimiter{ok: true}
	idx := &fakeIndex{}
	svc := newNewsService(env, fixedLocal("true"), model)
	svc.Limiter = limiter
	svc.Index = idx

	rec, err := svc.Generate(context.Background(), alice, GenerateRequest{
		Context: "sports", Style: "neutral", Length: "short", AdditionalContext: "local derby",
	})
	require.NoError(t, err)
	assert.Equal(t, "The match ended in a draw.", rec.GeneratedText)
	assert.Equal(t, "local derby", rec.AdditionalContext)
	assert.InDelta(t, 0.7, gotTemp, 1e-6)
	assert.Contains(t, gotPrompt, "sports and athletics")
	assert.Contains(t, gotPrompt, "local derby")

	assert.EqualValues(t, 1, limiter.acquired.Load())
	assert.EqualValues(t, 1, limiter.released.Load())
	assert.Len(t, idx.gens, 1)
	assert.Contains(t, env.events.Types(), EventGenerationRecorded)

	page, err := svc.ListGenerations(context.Background(), alice, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestGenerate_ValidationBeforeModelCall(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	called := false
	model := modelFunc(func(ctx context.Context, prompt string, temperature float32) (string, error) {
		called = true
		return "x", nil
	})
	svc := newNewsService(env, fixedLocal("true"), model)

	for _, req := range []GenerateRequest{
		{Context: "sports", Style: "angry", Length: "short"},
		{Context: "sports", Style: "neutral", Length: "epic"},
		{Context: "", Style: "neutral", Length: "short"},
	} {
		_, err := svc.Generate(context.Background(), alice, req)
		assert.ErrorIs(t, err, ErrValidation)
	}
	assert.False(t, called)
}

func TestGenerate_ExternalFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	req := GenerateRequest{Context: "health", Style: "satirical", Length: "long"}

	svc := newNewsService(env, fixedLocal("true"), failingModel(errBoom))
	_, err := svc.Generate(context.Background(), alice, req)
	require.ErrorIs(t, err, ErrExternalServiceDegraded)

	svc = newNewsService(env, fixedLocal("true"), fixedModel("   "))
	_, err = svc.Generate(context.Background(), alice, req)
	require.ErrorIs(t, err, ErrExternalServiceDegraded)

	var n int64
	require.NoError(t, env.repo.DB.Model(&models.GenerationRecord{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestGenerate_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	svc := newNewsService(env, fixedLocal("true"), fixedModel("text"))
	svc.Limiter = &fakeLimiter{ok: false}

	_, err := svc.Generate(context.Background(), alice, GenerateRequest{Context: "science", Style: "neutral", Length: "medium"})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestHistory_ScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	svc := newNewsService(env, fixedLocal("true"), fixedModel("true"))

	for i := 0; i < 3; i++ {
		_, err := svc.Classify(context.Background(), alice, strings.Repeat("a", i+1))
		require.NoError(t, err)
	}
	_, err := svc.Classify(context.Background(), bob, "bob's")
	require.NoError(t, err)

	page, err := svc.ListClassifications(context.Background(), bob, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, "bob's", page.Items[0].NewsText)

	page, err = svc.ListClassifications(context.Background(), alice, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Page)
}

func TestSearchHistory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	svc := newNewsService(env, fixedLocal("true"), fixedModel("true"))

	_, err := svc.SearchHistory(context.Background(), alice, "park", 1, 10)
	assert.ErrorIs(t, err, ErrSearchDisabled)

	svc.Index = &fakeIndex{hits: []models.HistoryHit{{Kind: "classification", RecordID: 1, Text: "new park"}}}
	_, err = svc.SearchHistory(context.Background(), alice, " ", 1, 10)
	assert.ErrorIs(t, err, ErrValidation)

	page, err := svc.SearchHistory(context.Background(), alice, "park", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	svc.Index = &fakeIndex{err: errBoom}
	_, err = svc.SearchHistory(context.Background(), alice, "park", 1, 10)
	assert.ErrorIs(t, err, ErrExternalServiceDegraded)
}
