package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/news_guard/internal/models"
)

const (
	KindClassification = "classification"
	KindGeneration     = "generation"
)

const historyMapping = `{
  "mappings": {
    "properties": {
      "kind":       {"type": "keyword"},
      "record_id":  {"type": "long"},
      "user_id":    {"type": "long"},
      "text":       {"type": "text"},
      "context":    {"type": "text"},
      "verdicts":   {"type": "keyword"},
      "created_at": {"type": "date"}
    }
  }
}`

type document struct {
	Kind      string    `json:"kind"`
	RecordID  uint      `json:"record_id"`
	UserID    uint      `json:"user_id"`
	Text      string    `json:"text"`
	Context   string    `json:"context,omitempty"`
	Verdicts  []string  `json:"verdicts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryIndex keeps a searchable copy of provenance records. The database
// stays the source of truth.
type HistoryIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewHistoryIndex(client *elasticsearch.Client, index string) *HistoryIndex {
	return &HistoryIndex{client: client, index: index}
}

// EnsureIndex creates the index with its mapping when missing.
func (h *HistoryIndex) EnsureIndex(ctx context.Context) error {
	res, err := h.client.Indices.Exists([]string{h.index}, h.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = h.client.Indices.Create(h.index,
		h.client.Indices.Create.WithContext(ctx),
		h.client.Indices.Create.WithBody(strings.NewReader(historyMapping)),
	)
	if err != nil {
		return fmt.Errorf("index create: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return fmt.Errorf("index create: %s", res.Status())
	}
	return nil
}

func (h *HistoryIndex) IndexClassification(ctx context.Context, rec models.ClassificationRecord) error {
	return h.put(ctx, document{
		Kind:      KindClassification,
		RecordID:  rec.ID,
		UserID:    rec.UserID,
		Text:      rec.NewsText,
		Verdicts:  []string{rec.CustomPrediction, rec.GeminiPrediction},
		CreatedAt: rec.CreatedAt,
	})
}

func (h *HistoryIndex) IndexGeneration(ctx context.Context, rec models.GenerationRecord) error {
	return h.put(ctx, document{
		Kind:      KindGeneration,
		RecordID:  rec.ID,
		UserID:    rec.UserID,
		Text:      rec.GeneratedText,
		Context:   strings.TrimSpace(rec.Context + " " + rec.AdditionalContext),
		CreatedAt: rec.CreatedAt,
	})
}

func (h *HistoryIndex) put(ctx context.Context, doc document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := h.client.Index(h.index, bytes.NewReader(body),
		h.client.Index.WithContext(ctx),
		h.client.Index.WithDocumentID(doc.Kind+"-"+strconv.FormatUint(uint64(doc.RecordID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index document: %s: %s", res.Status(), readBody(res.Body))
	}
	return nil
}

// Search matches query against the caller's documents only.
func (h *HistoryIndex) Search(ctx context.Context, userID uint, query string, from, size int) (int64, []models.HistoryHit, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userID}},
				},
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":     query,
						"fields":    []string{"text^2", "context"},
						"fuzziness": "AUTO",
					},
				},
			},
		},
		"sort": []any{"_score", map[string]any{"created_at": "desc"}},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search encode: %w", err)
	}

	res, err := h.client.Search(
		h.client.Search.WithContext(ctx),
		h.client.Search.WithIndex(h.index),
		h.client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), readBody(res.Body))
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64  `json:"_score"`
				Source document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search decode: %w", err)
	}

	hits := make([]models.HistoryHit, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		if hit.Source.UserID != userID {
			continue
		}
		hits = append(hits, models.HistoryHit{
			Kind:      hit.Source.Kind,
			RecordID:  hit.Source.RecordID,
			Text:      hit.Source.Text,
			Verdicts:  hit.Source.Verdicts,
			CreatedAt: hit.Source.CreatedAt,
			Score:     hit.Score,
		})
	}
	return r.Hits.Total.Value, hits, nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	return string(b)
}
