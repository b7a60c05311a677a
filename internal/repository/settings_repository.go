/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 16:05:33
 * @FilePath: \seo-assistant\internal\repository\settings_repository.go
 * @LastEditTime: 2025-10-13 16:05:39
 */
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"seo-assistant/internal/domain/content"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository 提供站点级键值设置的读写，Value 统一为 JSON 对象字符串。
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get 读取指定 name 的设置并解析为 map。记录不存在或 Value 为空时返回空 map，不报错。
func (r *SettingsRepository) Get(ctx context.Context, name string) (map[string]string, error) {
	var row content.Setting
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load setting %s: %w", name, err)
	}

	if strings.TrimSpace(row.Value) == "" {
		return map[string]string{}, nil
	}

	values := map[string]string{}
	if err := json.Unmarshal([]byte(row.Value), &values); err != nil {
		return nil, fmt.Errorf("decode setting %s: %w", name, err)
	}
	return values, nil
}

// Save 以 JSON 形式整体覆盖指定 name 的设置。
func (r *SettingsRepository) Save(ctx context.Context, name string, values map[string]string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", name, err)
	}

	row := content.Setting{Name: name, Value: string(raw)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
