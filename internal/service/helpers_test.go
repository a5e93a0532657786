package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/news_guard/internal/dbtest"
	"github.com/Skotchmaster/news_guard/internal/hash"
	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/internal/repo"
	"github.com/Skotchmaster/news_guard/internal/tokens"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingStore counts username lookups on top of the real repository.
type countingStore struct {
	*repo.GormRepo
	lookups atomic.Int32
}

func (s *countingStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.lookups.Add(1)
	return s.GormRepo.FindByUsername(ctx, username)
}

type testEnv struct {
	repo   *repo.GormRepo
	store  *countingStore
	clock  *testClock
	events *fakePublisher
	auth   *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := repo.New(dbtest.InitTestDB(t))
	store := &countingStore{GormRepo: r}
	clock := &testClock{now: time.Now().UTC()}

	h, err := hash.New(bcrypt.MinCost)
	require.NoError(t, err)
	iss, err := tokens.NewIssuer([]byte("test-jwt-secret"), time.Hour, tokens.WithClock(clock.Now))
	require.NoError(t, err)

	events := &fakePublisher{}
	return &testEnv{
		repo:   r,
		store:  store,
		clock:  clock,
		events: events,
		auth: &AuthService{
			Users:  store,
			Hasher: h,
			Tokens: iss,
			Events: events,
		},
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), username, username+"@example.com", "password-"+username)
	require.NoError(t, err)
	return u
}

type fakePublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *fakePublisher) PublishEvent(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event.(Event))
	return nil
}

func (p *fakePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type localFunc func(ctx context.Context, text string) (string, error)

func (f localFunc) Classify(ctx context.Context, text string) (string, error) { return f(ctx, text) }

type modelFunc func(ctx context.Context, prompt string, temperature float32) (string, error)

func (f modelFunc) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return f(ctx, prompt, temperature)
}

func fixedLocal(label string) localFunc {
	return func(ctx context.Context, text string) (string, error) { return label, nil }
}

func fixedModel(text string) modelFunc {
	return func(ctx context.Context, prompt string, temperature float32) (string, error) { return text, nil }
}

func failingModel(err error) modelFunc {
	return func(ctx context.Context, prompt string, temperature float32) (string, error) { return "", err }
}

type fakeLimiter struct {
	ok       bool
	err      error
	acquired atomic.Int32
	released atomic.Int32
}

func (l *fakeLimiter) Acquire(ctx context.Context, userID uint) (bool, func(), error) {
	if l.err != nil {
		return false, nil, l.err
	}
	if !l.ok {
		return false, nil, nil
	}
	l.acquired.Add(1)
	return true, func() { l.released.Add(1) }, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	classes []models.ClassificationRecord
	gens    []models.GenerationRecord
	hits    []models.HistoryHit
	err     error
}

func (f *fakeIndex) IndexClassification(ctx context.Context, rec models.ClassificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes = append(f.classes, rec)
	return f.err
}

func (f *fakeIndex) IndexGeneration(ctx context.Context, rec models.GenerationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gens = append(f.gens, rec)
	return f.err
}

func (f *fakeIndex) Search(ctx context.Context, userID uint, query string, from, size int) (int64, []models.HistoryHit, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.hits)), f.hits, nil
}

var errBoom = errors.New("boom")
