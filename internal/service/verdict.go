package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/news_guard/internal/models"
	"github.com/Skotchmaster/news_guard/pkg/logging"
)

// verdictKeywords is checked in order; the first substring found wins.
var verdictKeywords = []struct {
	keyword string
	verdict string
}{
	{"fake", models.VerdictFake},
	{"true", models.VerdictTrue},
	{"real", models.VerdictTrue},
}

// NormalizeVerdict folds free text from the external model into true, fake
// or indeterminate.
func NormalizeVerdict(raw string) string {
	s := strings.ToLower(raw)
	for _, kw := range verdictKeywords {
		if strings.Contains(s, kw.keyword) {
			return kw.verdict
		}
	}
	return models.VerdictIndeterminate
}

func normalizeLocalLabel(raw string) (string, error) {
	switch label := strings.ToLower(strings.TrimSpace(raw)); label {
	case models.VerdictTrue, models.VerdictFake:
		return label, nil
	default:
		return "", fmt.Errorf("%w: unexpected label %q", ErrLocalClassifier, raw)
	}
}

type Verdicts struct {
	Local    string
	External string
}

// Aggregator asks the local classifier and the external model about the same
// text at the same time. The local verdict is required; the external one
// degrades to indeterminate.
type Aggregator struct {
	Local           LocalClassifier
	External        ExternalModel
	ExternalTimeout time.Duration
	Temperature     float32
}

func (a *Aggregator) Aggregate(ctx context.Context, text string, allowExternal bool) (Verdicts, error) {
	var (
		wg       sync.WaitGroup
		local    string
		localErr error
		external = models.VerdictIndeterminate
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		local, localErr = a.runLocal(ctx, text)
	}()

	if allowExternal && a.External != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			external = a.runExternal(ctx, text)
		}()
	}
	wg.Wait()

	if localErr != nil {
		return Verdicts{}, localErr
	}
	return Verdicts{Local: local, External: external}, nil
}

func (a *Aggregator) runLocal(ctx context.Context, text string) (string, error) {
	raw, err := a.Local.Classify(ctx, text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLocalClassifier, err)
	}
	return normalizeLocalLabel(raw)
}

func (a *Aggregator) runExternal(ctx context.Context, text string) (verdict string) {
	l := logging.FromContext(ctx).With("component", "aggregator")
	defer func() {
		if r := recover(); r != nil {
			l.Error("external_verdict_panic", "panic", r)
			verdict = models.VerdictIndeterminate
		}
	}()

	if a.ExternalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.ExternalTimeout)
		defer cancel()
	}

	raw, err := a.External.Generate(ctx, BuildVerdictPrompt(text), a.Temperature)
	if err != nil {
		l.Warn("external_verdict_degraded", "error", err)
		return models.VerdictIndeterminate
	}
	v := NormalizeVerdict(raw)
	if v == models.VerdictIndeterminate {
		l.Warn("external_verdict_unparsed", "response_len", len(raw))
	}
	return v
}
