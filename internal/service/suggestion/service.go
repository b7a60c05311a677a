package suggestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appLogger "seo-assistant/internal/infra/logger"
	"seo-assistant/internal/infra/metrics"
	"seo-assistant/internal/repository"
	"seo-assistant/internal/service/settings"
)

// GenerationPayload 是一次建议生成的输入。Title/Content 为空时会回读文章记录补齐；
// prompt 字段非空时覆盖持久化配置，供调用方做一次性定制。
type GenerationPayload struct {
	PostID             uint
	Title              string
	Content            string
	RawBlocks          string
	SystemPrompt       string
	UserPromptTemplate string
}

// GeneratorHook 允许外部接管建议生成。返回 nil Bundle 表示放弃接管，
// 返回 error 同样视为放弃并只记录日志，继续走内置链路。
type GeneratorHook interface {
	Generate(ctx context.Context, model string, payload GenerationPayload) (*Bundle, error)
}

// Service 串联启发式基线、外部钩子与 OpenAI 生成链路。
type Service struct {
	posts    *repository.PostRepository
	settings *settings.Service
	hooks    []GeneratorHook
	logger   *zap.SugaredLogger
}

func NewService(posts *repository.PostRepository, settingsService *settings.Service) *Service {
	return &Service{
		posts:    posts,
		settings: settingsService,
		logger:   appLogger.S().With("component", "suggestion.service"),
	}
}

// RegisterHook 追加一个生成钩子，按注册顺序尝试，首个产出结果的钩子生效。
func (s *Service) RegisterHook(hook GeneratorHook) {
	if hook != nil {
		s.hooks = append(s.hooks, hook)
	}
}

// BuildInput 补齐 payload 中缺失的标题与正文。文章不存在时原样返回错误。
func (s *Service) BuildInput(ctx context.Context, payload GenerationPayload) (GenerationPayload, error) {
	if strings.TrimSpace(payload.Title) != "" || strings.TrimSpace(payload.Content) != "" {
		return payload, nil
	}
	post, err := s.posts.FindByID(ctx, payload.PostID)
	if err != nil {
		return payload, fmt.Errorf("load post %d: %w", payload.PostID, err)
	}
	payload.Title = post.Title
	payload.Content = post.Content
	if payload.RawBlocks == "" {
		payload.RawBlocks = post.RawBlocks
	}
	return payload, nil
}

// Build 生成一份完整的建议包。ai_model 为 heuristic 时直接返回启发式基线；
// 否则先询问钩子，再走 OpenAI 增强。OpenAI 链路失败时直接报错，
// 不会静默回退到启发式结果。
func (s *Service) Build(ctx context.Context, payload GenerationPayload) (Bundle, error) {
	cfg, err := s.settings.Resolve(ctx)
	if err != nil {
		return Bundle{}, fmt.Errorf("resolve settings: %w", err)
	}

	payload, err = s.BuildInput(ctx, payload)
	if err != nil {
		return Bundle{}, err
	}

	base := buildHeuristic(payload.Title, payload.Content)
	base.ModelUsed = settings.ModelHeuristic

	if cfg.AIModel == settings.ModelHeuristic {
		return base, nil
	}

	if hooked := s.runHooks(ctx, cfg.AIModel, payload); hooked != nil {
		merged := mergeBundles(base, *hooked)
		if merged.ModelUsed == "" || merged.ModelUsed == settings.ModelHeuristic {
			merged.ModelUsed = cfg.AIModel
		}
		return merged, nil
	}

	switch cfg.AIModel {
	case settings.ModelOpenAI:
		start := time.Now()
		generated, usage, err := callOpenAI(ctx, payload, cfg)
		if err != nil {
			status := "error"
			if errors.Is(err, ErrMissingAPIKey) {
				status = "missing_key"
			}
			metrics.ObserveSuggestion(status, cfg.OpenAIModel, time.Since(start), usage)
			s.logger.Warnw("openai suggestion failed",
				"operation", "Build",
				"post_id", payload.PostID,
				"error", err,
			)
			return Bundle{}, err
		}
		metrics.ObserveSuggestion("ok", cfg.OpenAIModel, time.Since(start), usage)
		merged := mergeBundles(base, generated)
		merged.ModelUsed = settings.ModelOpenAI
		return merged, nil
	default:
		// 未知模型配置按启发式兜底，只在结果上标注模型名方便排查。
		s.logger.Warnw("unknown ai model, falling back to heuristic",
			"operation", "Build",
			"ai_model", cfg.AIModel,
		)
		base.ModelUsed = cfg.AIModel
		return base, nil
	}
}

func (s *Service) runHooks(ctx context.Context, model string, payload GenerationPayload) *Bundle {
	for _, hook := range s.hooks {
		bundle, err := hook.Generate(ctx, model, payload)
		if err != nil {
			s.logger.Warnw("generator hook declined with error",
				"operation", "runHooks",
				"post_id", payload.PostID,
				"error", err,
			)
			continue
		}
		if bundle != nil {
			return bundle
		}
	}
	return nil
}
