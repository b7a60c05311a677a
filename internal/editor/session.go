package editor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	appLogger "seo-assistant/internal/infra/logger"
)

// Snapshot 是一次建议请求的完整结果：建议字段、关键词、所用模型与文章当前已存的 meta。
type Snapshot struct {
	Fields      map[string]string
	Keywords    []string
	ModelUsed   string
	CurrentMeta map[string]string
}

// SuggestAPI 抽象后端建议接口，生产环境由 HTTP 客户端实现，测试里用桩替代。
type SuggestAPI interface {
	Suggest(ctx context.Context, postID uint) (Snapshot, error)
	Apply(ctx context.Context, postID uint, fields map[string]string, flags map[string]bool) ([]string, error)
}

// HostForm 抽象宿主编辑器的表单，应用建议后把采纳的字段回填进去。
type HostForm interface {
	SetField(name, value string)
}

// Notifier 把结果反馈给用户界面。
type Notifier interface {
	Success(message string)
	Error(message string)
}

// 会话层错误：加载与应用互斥，进行中的操作不允许并发重入。
var (
	ErrFetchInProgress = errors.New("suggestion fetch already in progress")
	ErrApplyInProgress = errors.New("apply already in progress")
)

// Session 管理单个编辑会话内的建议面板状态：逐文章缓存、加载/应用门闩与面板开合。
type Session struct {
	api      SuggestAPI
	form     HostForm
	notifier Notifier
	logger   *zap.SugaredLogger

	mu         sync.Mutex
	cache      map[uint]*Snapshot
	isLoading  bool
	isApplying bool
	panelOpen  bool
}

func NewSession(api SuggestAPI, form HostForm, notifier Notifier) *Session {
	return &Session{
		api:      api,
		form:     form,
		notifier: notifier,
		logger:   appLogger.S().With("component", "editor.session"),
		cache:    make(map[uint]*Snapshot),
	}
}

// PanelOpen 返回建议面板是否展开。
func (s *Session) PanelOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.panelOpen
}

// Loading 返回是否有建议请求进行中。
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

// Applying 返回是否有写回请求进行中。
func (s *Session) Applying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isApplying
}

// FetchSuggestions 获取指定文章的建议并打开面板。命中缓存且未强制刷新时不发请求。
func (s *Session) FetchSuggestions(ctx context.Context, postID uint, force bool) (*Snapshot, error) {
	s.mu.Lock()
	if s.isLoading {
		s.mu.Unlock()
		return nil, ErrFetchInProgress
	}
	if !force {
		if cached, ok := s.cache[postID]; ok {
			s.panelOpen = true
			s.mu.Unlock()
			return cached, nil
		}
	}
	s.isLoading = true
	s.mu.Unlock()

	snapshot, err := s.api.Suggest(ctx, postID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	if err != nil {
		s.logger.Warnw("fetch suggestions failed",
			"operation", "FetchSuggestions",
			"post_id", postID,
			"error", err,
		)
		if s.notifier != nil {
			s.notifier.Error("Could not fetch suggestions: " + err.Error())
		}
		return nil, err
	}
	s.cache[postID] = &snapshot
	s.panelOpen = true
	return &snapshot, nil
}

// Refresh 绕过缓存重新获取建议。成功后覆盖缓存条目，失败时保留旧条目。
func (s *Session) Refresh(ctx context.Context, postID uint) (*Snapshot, error) {
	return s.FetchSuggestions(ctx, postID, true)
}

// Apply 把当前缓存的建议写回后端。flags 为 nil 时默认采纳所有非空字段；
// OG/Twitter 字段为空时回退到对应的 meta 字段值。成功后把采纳的字段回填宿主
// 表单并关闭面板，失败时面板保持打开以便重试。
func (s *Session) Apply(ctx context.Context, postID uint, flags map[string]bool) error {
	s.mu.Lock()
	if s.isApplying {
		s.mu.Unlock()
		return ErrApplyInProgress
	}
	snapshot, ok := s.cache[postID]
	if !ok {
		s.mu.Unlock()
		return errors.New("no suggestions cached for this post")
	}
	fields := resolveApplyFields(snapshot.Fields)
	if flags == nil {
		flags = defaultApplyFlags(fields)
	}
	s.isApplying = true
	s.mu.Unlock()

	_, err := s.api.Apply(ctx, postID, fields, flags)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isApplying = false
	if err != nil {
		s.logger.Warnw("apply suggestions failed",
			"operation", "Apply",
			"post_id", postID,
			"error", err,
		)
		if s.notifier != nil {
			s.notifier.Error("Could not apply suggestions: " + err.Error())
		}
		return err
	}

	for name, value := range fields {
		if flags[name] {
			s.form.SetField(name, value)
		}
	}
	s.panelOpen = false
	if s.notifier != nil {
		s.notifier.Success("SEO metadata applied.")
	}
	return nil
}

// resolveApplyFields 复制建议字段并补齐 OG/Twitter 的回退值。
func resolveApplyFields(suggested map[string]string) map[string]string {
	fields := make(map[string]string, len(suggested))
	for name, value := range suggested {
		fields[name] = value
	}
	fallbacks := map[string]string{
		"open_graph_title":       "meta_title",
		"open_graph_description": "meta_description",
		"twitter_title":          "meta_title",
		"twitter_description":    "meta_description",
	}
	for name, source := range fallbacks {
		if strings.TrimSpace(fields[name]) == "" {
			fields[name] = fields[source]
		}
	}
	return fields
}

// defaultApplyFlags 默认采纳所有非空字段。
func defaultApplyFlags(fields map[string]string) map[string]bool {
	flags := make(map[string]bool, len(fields))
	for name, value := range fields {
		flags[name] = strings.TrimSpace(value) != ""
	}
	return flags
}
