package repository

import (
	"context"

	"seo-assistant/internal/domain/content"

	"gorm.io/gorm"
)

// AttachmentRepository 记录社交卡片等渲染产物。
type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create 写入附件记录并回填自增 ID。
func (r *AttachmentRepository) Create(ctx context.Context, attachment *content.Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}
