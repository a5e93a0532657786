package httpserver

import (
	"time"

	"github.com/Skotchmaster/news_guard/internal/models"
)

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type predictRequest struct {
	News string `json:"news"`
}

// predictResponse carries the stored record plus the short keys the web
// client reads.
type predictResponse struct {
	models.ClassificationRecord
	BertModel   string `json:"bert_model"`
	GeminiModel string `json:"gemini_model"`
}

type generateRequest struct {
	Context           string `json:"context"`
	Style             string `json:"style"`
	Length            string `json:"length"`
	AdditionalContext string `json:"additional_context"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type pageResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}
