package models

import (
	"time"
)

type User struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"                                 json:"id"`
	Username       string    `gorm:"size:50;not null;uniqueIndex:idx_users_username"          json:"username"`
	Email          string    `gorm:"size:100;not null;uniqueIndex:idx_users_email"            json:"email"`
	PasswordDigest string    `gorm:"column:hashed_password;size:255;not null"                 json:"-"`
	IsActive       bool      `gorm:"not null;default:true"                                    json:"is_active"`
	IsAdmin        bool      `gorm:"not null;default:false"                                   json:"is_admin"`
	CreatedAt      time.Time `gorm:"not null"                                                 json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null"                                                 json:"updated_at"`
}

// Verdict values stored on classification records.
const (
	VerdictTrue          = "true"
	VerdictFake          = "fake"
	VerdictIndeterminate = "indeterminate"
)

// ClassificationRecord is an append-only row. CustomPrediction comes from the
// local classifier, GeminiPrediction from the external model.
type ClassificationRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"        json:"id"`
	UserID           uint      `gorm:"index;not null"                  json:"user_id"`
	NewsText         string    `gorm:"type:text;not null"              json:"news_text"`
	CustomPrediction string    `gorm:"size:16;not null"                json:"custom_prediction"`
	GeminiPrediction string    `gorm:"size:16;not null"                json:"gemini_prediction"`
	CreatedAt        time.Time `gorm:"index;not null"                  json:"created_at"`
}

func (ClassificationRecord) TableName() string { return "news_history" }

type GenerationRecord struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID            uint      `gorm:"index;not null"            json:"user_id"`
	Context           string    `gorm:"size:100;not null"         json:"context"`
	Style             string    `gorm:"size:50;not null"          json:"style"`
	Length            string    `gorm:"size:20;not null"          json:"length"`
	AdditionalContext string    `gorm:"type:text"                 json:"additional_context"`
	GeneratedText     string    `gorm:"type:text;not null"        json:"generated_text"`
	CreatedAt         time.Time `gorm:"index;not null"            json:"created_at"`
}

func (GenerationRecord) TableName() string { return "generated_news" }

// All lists every model for AutoMigrate in dev and tests.
func All() []any {
	return []any{&User{}, &ClassificationRecord{}, &GenerationRecord{}}
}

// HistoryHit is one search result over a user's own records.
type HistoryHit struct {
	Kind      string    `json:"kind"`
	RecordID  uint      `json:"record_id"`
	Text      string    `json:"text"`
	Verdicts  []string  `json:"verdicts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Score     float64   `json:"score"`
}
