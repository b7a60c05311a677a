package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	response "seo-assistant/internal/infra/common"
	appLogger "seo-assistant/internal/infra/logger"
	"seo-assistant/internal/infra/model/openai"
	"seo-assistant/internal/infra/ratelimit"
	"seo-assistant/internal/repository"
	settingssvc "seo-assistant/internal/service/settings"
	"seo-assistant/internal/service/socialimage"
	suggestionsvc "seo-assistant/internal/service/suggestion"
)

// SeoHandler 承接元数据建议、写回与社交图相关的 HTTP 请求。
type SeoHandler struct {
	suggestions  *suggestionsvc.Service
	social       *socialimage.Service
	settings     *settingssvc.Service
	posts        *repository.PostRepository
	limiter      ratelimit.Limiter
	logger       *zap.SugaredLogger
	suggestLimit int
	suggestWin   time.Duration
	socialLimit  int
	socialWin    time.Duration
}

// SeoRateLimit 配置生成与渲染两类重接口的限流阈值。
type SeoRateLimit struct {
	SuggestLimit  int
	SuggestWindow time.Duration
	SocialLimit   int
	SocialWindow  time.Duration
}

const (
	// DefaultSuggestLimit 控制建议生成接口默认限额（次/窗口）。
	DefaultSuggestLimit = 10
	// DefaultSuggestWindow 控制建议生成接口限流窗口长度。
	DefaultSuggestWindow = time.Minute
	// DefaultSocialLimit 控制社交图渲染接口默认限额。
	DefaultSocialLimit = 5
	// DefaultSocialWindow 控制社交图渲染接口限流窗口长度。
	DefaultSocialWindow = 10 * time.Minute
)

// NewSeoHandler 创建 SeoHandler，未传入限流配置时使用默认阈值。
func NewSeoHandler(
	suggestions *suggestionsvc.Service,
	social *socialimage.Service,
	settings *settingssvc.Service,
	posts *repository.PostRepository,
	limiter ratelimit.Limiter,
	cfg SeoRateLimit,
) *SeoHandler {
	if cfg.SuggestLimit <= 0 {
		cfg.SuggestLimit = DefaultSuggestLimit
	}
	if cfg.SuggestWindow <= 0 {
		cfg.SuggestWindow = DefaultSuggestWindow
	}
	if cfg.SocialLimit <= 0 {
		cfg.SocialLimit = DefaultSocialLimit
	}
	if cfg.SocialWindow <= 0 {
		cfg.SocialWindow = DefaultSocialWindow
	}
	return &SeoHandler{
		suggestions:  suggestions,
		social:       social,
		settings:     settings,
		posts:        posts,
		limiter:      limiter,
		logger:       appLogger.S().With("component", "seo.handler"),
		suggestLimit: cfg.SuggestLimit,
		suggestWin:   cfg.SuggestWindow,
		socialLimit:  cfg.SocialLimit,
		socialWin:    cfg.SocialWindow,
	}
}

// suggestRequest 描述建议生成接口的入参。标题与正文可选，缺省时回读文章记录。
type suggestRequest struct {
	PostID             uint   `json:"post_id" binding:"required"`
	Title              string `json:"title"`
	Content            string `json:"content"`
	RawBlocks          string `json:"raw_blocks"`
	SystemPrompt       string `json:"openai_prompt"`
	UserPromptTemplate string `json:"openai_user_prompt"`
}

// applyRequest 描述写回接口的入参。六个字段均可缺省，apply 中缺失的键默认写入。
type applyRequest struct {
	PostID               uint            `json:"post_id" binding:"required"`
	MetaTitle            string          `json:"meta_title"`
	MetaDescription      string          `json:"meta_description"`
	OpenGraphTitle       string          `json:"open_graph_title"`
	OpenGraphDescription string          `json:"open_graph_description"`
	TwitterTitle         string          `json:"twitter_title"`
	TwitterDescription   string          `json:"twitter_description"`
	Apply                map[string]bool `json:"apply"`
}

func (r applyRequest) fieldValues() map[string]string {
	return map[string]string{
		"meta_title":             r.MetaTitle,
		"meta_description":       r.MetaDescription,
		"open_graph_title":       r.OpenGraphTitle,
		"open_graph_description": r.OpenGraphDescription,
		"twitter_title":          r.TwitterTitle,
		"twitter_description":    r.TwitterDescription,
	}
}

// socialImageRequest 描述社交图渲染接口的入参。url 缺省时按文章 slug 推导。
type socialImageRequest struct {
	PostID uint   `json:"post_id" binding:"required"`
	URL    string `json:"url"`
}

// settingsRequest 接收设置更新，nil 字段表示不修改。
type settingsRequest struct {
	AIModel            *string `json:"ai_model"`
	SeoPlugin          *string `json:"seo_plugin"`
	OpenAIAPIKey       *string `json:"openai_api_key"`
	OpenAIModel        *string `json:"openai_model"`
	SystemPrompt       *string `json:"openai_prompt"`
	UserPromptTemplate *string `json:"openai_user_prompt"`
}

// Suggest 为指定文章生成一份元数据建议，同时返回已保存的当前 meta。
func (h *SeoHandler) Suggest(c *gin.Context) {
	log := h.scope("suggest")
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PostID == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPostID, "post_id is required", nil)
		return
	}

	if !h.canEditPost(c, log, userID, req.PostID) {
		return
	}
	if !settingssvc.TSFActive() {
		response.Fail(c, http.StatusConflict, response.ErrTSFInactive, "the seo framework integration is not active", nil)
		return
	}
	if !h.allow(c, fmt.Sprintf("seo:suggest:%d", userID), h.suggestLimit, h.suggestWin) {
		return
	}

	bundle, err := h.suggestions.Build(c.Request.Context(), suggestionsvc.GenerationPayload{
		PostID:             req.PostID,
		Title:              req.Title,
		Content:            req.Content,
		RawBlocks:          req.RawBlocks,
		SystemPrompt:       req.SystemPrompt,
		UserPromptTemplate: req.UserPromptTemplate,
	})
	if err != nil {
		h.failSuggestion(c, log, req.PostID, err)
		return
	}

	currentMeta, err := h.suggestions.CurrentMeta(c.Request.Context(), req.PostID)
	if err != nil {
		log.Errorw("load current meta failed", "error", err, "post_id", req.PostID)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "could not load current metadata", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"suggestions":  bundle,
		"current_meta": currentMeta,
		"settings":     h.settingsView(c, log),
	}, nil)
}

// Apply 把采纳的建议字段写回文章 meta。
func (h *SeoHandler) Apply(c *gin.Context) {
	log := h.scope("apply")
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PostID == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPostID, "post_id is required", nil)
		return
	}

	if !h.canEditPost(c, log, userID, req.PostID) {
		return
	}
	if !settingssvc.TSFActive() {
		response.Fail(c, http.StatusConflict, response.ErrTSFInactive, "the seo framework integration is not active", nil)
		return
	}

	result, err := h.suggestions.Apply(c.Request.Context(), suggestionsvc.ApplyInput{
		PostID: req.PostID,
		Fields: req.fieldValues(),
		Flags:  req.Apply,
	})
	if err != nil {
		if errors.Is(err, suggestionsvc.ErrUnsupportedSeoPlugin) {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrSeoPluginUnsupported, err.Error(), nil)
			return
		}
		log.Errorw("apply suggestions failed", "error", err, "post_id", req.PostID, "user_id", userID)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "could not apply metadata", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"updated_keys": result.UpdatedKeys,
		"settings":     h.settingsView(c, log),
	}, nil)
}

// SocialImage 为指定文章渲染社交分享图并登记为附件。
func (h *SeoHandler) SocialImage(c *gin.Context) {
	log := h.scope("social_image")
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "missing user id", nil)
		return
	}

	var req socialImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PostID == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPostID, "post_id is required", nil)
		return
	}

	if !h.canEditPost(c, log, userID, req.PostID) {
		return
	}
	if !settingssvc.TSFActive() {
		response.Fail(c, http.StatusConflict, response.ErrTSFInactive, "the seo framework integration is not active", nil)
		return
	}
	if !h.allow(c, fmt.Sprintf("seo:social:%d", userID), h.socialLimit, h.socialWin) {
		return
	}

	attachment, err := h.social.Generate(c.Request.Context(), req.PostID, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, socialimage.ErrTargetNotConfigured):
			response.Fail(c, http.StatusServiceUnavailable, response.ErrRendererUnavailable, err.Error(), nil)
		case errors.Is(err, socialimage.ErrRendererFailed):
			response.Fail(c, http.StatusBadGateway, response.ErrRendererUnavailable, err.Error(), nil)
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, "post not found", nil)
		default:
			log.Errorw("social image generation failed", "error", err, "post_id", req.PostID)
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "could not generate social image", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attachment_id": attachment.ID,
		"file_name":     attachment.FileName,
		"url":           attachment.URL,
		"size_bytes":    attachment.SizeBytes,
	}, nil)
}

// GetSettings 返回当前生效配置，API Key 只披露是否已配置。
func (h *SeoHandler) GetSettings(c *gin.Context) {
	log := h.scope("get_settings")
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "admin only", nil)
		return
	}

	resolved, err := h.settings.Resolve(c.Request.Context())
	if err != nil {
		log.Errorw("resolve settings failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "could not load settings", nil)
		return
	}
	response.Success(c, http.StatusOK, settingssvc.AsView(resolved), nil)
}

// UpdateSettings 保存设置，只更新请求中出现的字段。
func (h *SeoHandler) UpdateSettings(c *gin.Context) {
	log := h.scope("update_settings")
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "admin only", nil)
		return
	}

	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "invalid settings payload", nil)
		return
	}

	saved, err := h.settings.Save(c.Request.Context(), settingssvc.SaveInput{
		AIModel:            req.AIModel,
		SeoPlugin:          req.SeoPlugin,
		OpenAIAPIKey:       req.OpenAIAPIKey,
		OpenAIModel:        req.OpenAIModel,
		SystemPrompt:       req.SystemPrompt,
		UserPromptTemplate: req.UserPromptTemplate,
	})
	if err != nil {
		if errors.Is(err, settingssvc.ErrInvalidSeoPlugin) {
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrSeoPluginUnsupported, err.Error(), nil)
			return
		}
		log.Errorw("save settings failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "could not save settings", nil)
		return
	}

	response.Success(c, http.StatusOK, settingssvc.AsView(saved), nil)
}

// settingsView 返回当前生效配置的脱敏视图，解析失败时降级为 nil 不阻断主流程。
func (h *SeoHandler) settingsView(c *gin.Context, log *zap.SugaredLogger) *settingssvc.View {
	resolved, err := h.settings.Resolve(c.Request.Context())
	if err != nil {
		log.Warnw("resolve settings for response failed", "error", err)
		return nil
	}
	view := settingssvc.AsView(resolved)
	return &view
}

// failSuggestion 把生成链路错误映射到对外错误码。
func (h *SeoHandler) failSuggestion(c *gin.Context, log *zap.SugaredLogger, postID uint, err error) {
	var apiErr *openai.APIError
	switch {
	case errors.Is(err, suggestionsvc.ErrMissingAPIKey):
		response.Fail(c, http.StatusBadRequest, response.ErrProviderMissingKey, err.Error(), nil)
	case errors.As(err, &apiErr):
		response.Fail(c, http.StatusBadGateway, response.ErrProviderHTTP, apiErr.Message, gin.H{"status_code": apiErr.StatusCode})
	case errors.Is(err, suggestionsvc.ErrProviderUnreachable):
		response.Fail(c, http.StatusBadGateway, response.ErrProviderUnreachable, err.Error(), nil)
	case errors.Is(err, suggestionsvc.ErrEmptyProviderReply):
		response.Fail(c, http.StatusBadGateway, response.ErrProviderEmpty, err.Error(), nil)
	case errors.Is(err, suggestionsvc.ErrUnparsableProviderReply):
		response.Fail(c, http.StatusBadGateway, response.ErrProviderParse, err.Error(), nil)
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound, "post not found", nil)
	default:
		log.Errorw("build suggestions failed", "error", err, "post_id", postID)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "could not build suggestions", nil)
	}
}

// canEditPost 校验当前用户是否有权编辑目标文章：作者本人或管理员。
func (h *SeoHandler) canEditPost(c *gin.Context, log *zap.SugaredLogger, userID, postID uint) bool {
	post, err := h.posts.FindByID(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound, "post not found", nil)
			return false
		}
		log.Errorw("load post failed", "error", err, "post_id", postID)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "could not load post", nil)
		return false
	}
	if post.AuthorID != userID && !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "no permission to edit this post", nil)
		return false
	}
	return true
}

// allow 根据限流配置判断当前请求是否放行。
func (h *SeoHandler) allow(c *gin.Context, key string, limit int, window time.Duration) bool {
	if h.limiter == nil || limit <= 0 {
		return true
	}
	res, err := h.limiter.Allow(c.Request.Context(), key, limit, window)
	if err != nil {
		h.logger.Warnw("ratelimit error", "key", key, "error", err)
		return true
	}
	if res.Allowed {
		return true
	}
	retry := int(res.RetryAfter.Seconds())
	response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "too many requests, try again later", gin.H{"retry_after_seconds": retry})
	return false
}

// scope 派生带行动标签的日志实例，便于排查具体操作。
func (h *SeoHandler) scope(action string) *zap.SugaredLogger {
	return h.logger.With("action", action)
}

// extractUserID 从 gin 上下文取出认证中间件写入的用户 ID。
func extractUserID(c *gin.Context) (uint, bool) {
	val, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	switch id := val.(type) {
	case uint:
		return id, true
	case uint64:
		return uint(id), true
	case int:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case int64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}

func isAdmin(c *gin.Context) bool {
	val, ok := c.Get("isAdmin")
	if !ok {
		return false
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return false
}
