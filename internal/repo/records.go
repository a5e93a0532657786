package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/news_guard/internal/models"
)

// Records are append-only; no update or delete methods exist.

func (r *GormRepo) CreateClassification(ctx context.Context, rec *models.ClassificationRecord) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}

func (r *GormRepo) CreateGeneration(ctx context.Context, rec *models.GenerationRecord) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
}

func (r *GormRepo) ListClassifications(ctx context.Context, userID uint, offset, limit int) ([]models.ClassificationRecord, int64, error) {
	var total int64
	base := r.DB.WithContext(ctx).Model(&models.ClassificationRecord{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	out := make([]models.ClassificationRecord, 0, limit)
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *GormRepo) ListGenerations(ctx context.Context, userID uint, offset, limit int) ([]models.GenerationRecord, int64, error) {
	var total int64
	base := r.DB.WithContext(ctx).Model(&models.GenerationRecord{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	out := make([]models.GenerationRecord, 0, limit)
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
