package suggestion

import (
	"context"
	"fmt"
	"strings"

	"seo-assistant/internal/infra/metrics"
	"seo-assistant/internal/service/settings"
)

// tsfField 把建议字段映射到 The SEO Framework 使用的 post meta 键。
type tsfField struct {
	name    string // 建议字段名，也是 apply 请求里 fields/flags 的键
	metaKey string
}

// 写回顺序固定，保证 updated_keys 的顺序可预期。
var tsfFields = []tsfField{
	{name: "meta_title", metaKey: "_genesis_title"},
	{name: "meta_description", metaKey: "_genesis_description"},
	{name: "open_graph_title", metaKey: "_open_graph_title"},
	{name: "open_graph_description", metaKey: "_open_graph_description"},
	{name: "twitter_title", metaKey: "_twitter_title"},
	{name: "twitter_description", metaKey: "_twitter_description"},
}

// ApplyInput 描述一次元数据写回请求。Flags 缺失的字段默认写入。
type ApplyInput struct {
	PostID uint
	Fields map[string]string
	Flags  map[string]bool
}

// ApplyResult 记录实际写入的 meta 键，删除不计入。
type ApplyResult struct {
	UpdatedKeys []string `json:"updated_keys"`
}

// Apply 把建议字段写回文章 meta。逐字段处理：trim 后为空则删除对应键，
// 非空则 upsert；单个字段失败只记日志并继续，不中断整批写回。
func (s *Service) Apply(ctx context.Context, input ApplyInput) (ApplyResult, error) {
	cfg, err := s.settings.Resolve(ctx)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("resolve settings: %w", err)
	}
	if cfg.SeoPlugin != settings.PluginTSF {
		metrics.RecordApply("unsupported_plugin")
		return ApplyResult{}, ErrUnsupportedSeoPlugin
	}

	result := ApplyResult{UpdatedKeys: []string{}}
	for _, field := range tsfFields {
		if enabled, ok := input.Flags[field.name]; ok && !enabled {
			continue
		}
		value := strings.TrimSpace(input.Fields[field.name])
		if value == "" {
			if err := s.posts.DeleteMeta(ctx, input.PostID, field.metaKey); err != nil {
				s.logger.Warnw("delete post meta failed",
					"operation", "Apply",
					"post_id", input.PostID,
					"meta_key", field.metaKey,
					"error", err,
				)
			}
			continue
		}
		if err := s.posts.UpsertMeta(ctx, input.PostID, field.metaKey, value); err != nil {
			s.logger.Warnw("upsert post meta failed",
				"operation", "Apply",
				"post_id", input.PostID,
				"meta_key", field.metaKey,
				"error", err,
			)
			continue
		}
		result.UpdatedKeys = append(result.UpdatedKeys, field.metaKey)
	}

	metrics.RecordApply("ok")
	return result, nil
}

// CurrentMeta 读取文章当前已保存的 SEO meta，按建议字段名返回，未设置的字段为空串。
func (s *Service) CurrentMeta(ctx context.Context, postID uint) (map[string]string, error) {
	keys := make([]string, 0, len(tsfFields))
	for _, field := range tsfFields {
		keys = append(keys, field.metaKey)
	}
	stored, err := s.posts.GetMeta(ctx, postID, keys)
	if err != nil {
		return nil, fmt.Errorf("load post meta: %w", err)
	}

	current := make(map[string]string, len(tsfFields))
	for _, field := range tsfFields {
		current[field.name] = stored[field.metaKey]
	}
	return current, nil
}
