/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 15:40:19
 * @FilePath: \seo-assistant\internal\repository\post_repository.go
 * @LastEditTime: 2025-10-14 09:22:41
 */
package repository

import (
	"context"

	"seo-assistant/internal/domain/content"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository 提供 posts 与 post_meta 表的读写操作。
type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// FindByID 返回指定文章。
func (r *PostRepository) FindByID(ctx context.Context, id uint) (*content.Post, error) {
	var post content.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// GetMeta 批量读取文章的元数据，返回 meta_key -> meta_value 映射，缺失的 key 不出现在结果里。
func (r *PostRepository) GetMeta(ctx context.Context, postID uint, keys []string) (map[string]string, error) {
	var rows []content.PostMeta
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND meta_key IN ?", postID, keys).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string, len(rows))
	for _, row := range rows {
		meta[row.MetaKey] = row.MetaValue
	}
	return meta, nil
}

// UpsertMeta 写入或更新单个元数据项。依赖 (post_id, meta_key) 唯一索引做冲突合并。
func (r *PostRepository) UpsertMeta(ctx context.Context, postID uint, key, value string) error {
	row := content.PostMeta{PostID: postID, MetaKey: key, MetaValue: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "meta_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"meta_value", "updated_at"}),
		}).
		Create(&row).Error
}

// DeleteMeta 删除单个元数据项，key 不存在时视为成功（幂等）。
func (r *PostRepository) DeleteMeta(ctx context.Context, postID uint, key string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND meta_key = ?", postID, key).
		Delete(&content.PostMeta{}).Error
}
