/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-14 10:12:06
 * @FilePath: \seo-assistant\internal\service\settings\service.go
 * @LastEditTime: 2025-10-15 09:47:22
 */
package settings

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	appLogger "seo-assistant/internal/infra/logger"
	"seo-assistant/internal/infra/model/openai"
	"seo-assistant/internal/infra/security"
	"seo-assistant/internal/repository"

	"go.uber.org/zap"
)

const (
	// OptionName 是设置在键值存储中的主键名。
	OptionName = "seo_assistant_settings"
	// LegacyOptionName 是旧版本使用的键名，主键为空时做一次性兼容读取，不回写。
	LegacyOptionName = "acorn_seo_assistant_settings"
)

// 支持的生成器与目标 SEO 插件枚举。
const (
	ModelHeuristic = "heuristic"
	ModelOpenAI    = "openai"

	PluginTSF   = "tsf"
	PluginYoast = "yoast"
)

// 环境变量覆盖：只要变量被定义（presence 而非取值判断），对应字段就固定为编译期默认值，
// 忽略持久化配置。默认值本身会读取环境变量取值，等价于"环境变量整字段覆盖"。
const (
	envModel         = "SEO_ASSISTANT_MODEL"
	envPlugin        = "SEO_ASSISTANT_PLUGIN"
	envOpenAIKey     = "SEO_ASSISTANT_OPENAI_KEY"
	envOpenAIModel   = "SEO_ASSISTANT_OPENAI_MODEL"
	envOpenAIBaseURL = "SEO_ASSISTANT_OPENAI_BASE_URL"
	envTSFActive     = "SEO_ASSISTANT_TSF_ACTIVE"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"

	// 存储层的字段 key。
	keyAIModel       = "ai_model"
	keyPlugin        = "seo_plugin"
	keyOpenAIKey     = "openai_api_key"
	keyOpenAIModel   = "openai_model"
	keyOpenAIBaseURL = "openai_base_url"
	keySystemPrompt  = "openai_prompt"
	keyUserPrompt    = "openai_user_prompt"

	cipherPrefix = "enc:"
)

// ErrInvalidSeoPlugin 表示保存设置时传入了不支持的插件取值。
var ErrInvalidSeoPlugin = errors.New("unsupported seo plugin")

// Settings 是解析后的生效配置，按请求重新计算，不做跨请求缓存。
type Settings struct {
	AIModel            string
	SeoPlugin          string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	SystemPrompt       string
	UserPromptTemplate string
}

// View 是对外暴露的设置视图，API Key 只披露是否已配置。
type View struct {
	AIModel            string `json:"ai_model"`
	SeoPlugin          string `json:"seo_plugin"`
	OpenAIModel        string `json:"openai_model"`
	OpenAIKeySet       bool   `json:"openai_key_set"`
	SystemPrompt       string `json:"openai_prompt"`
	UserPromptTemplate string `json:"openai_user_prompt"`
}

// SaveInput 描述设置保存请求，nil 字段表示保持现值。
type SaveInput struct {
	AIModel            *string
	SeoPlugin          *string
	OpenAIAPIKey       *string
	OpenAIModel        *string
	SystemPrompt       *string
	UserPromptTemplate *string
}

// Service 负责生效配置的解析与保存。
type Service struct {
	repo   *repository.SettingsRepository
	logger *zap.SugaredLogger
}

func NewService(repo *repository.SettingsRepository) *Service {
	return &Service{
		repo:   repo,
		logger: appLogger.S().With("component", "settings.service"),
	}
}

// Defaults 返回编译期默认配置。环境变量取值会作为默认值的一部分参与计算，
// 这与宿主配置文件里 env(...) 的语义一致。
func Defaults() Settings {
	return Settings{
		AIModel:            envOrDefault(envModel, ModelHeuristic),
		SeoPlugin:          envOrDefault(envPlugin, PluginTSF),
		OpenAIAPIKey:       envOrDefault(envOpenAIKey, ""),
		OpenAIModel:        envOrDefault(envOpenAIModel, defaultOpenAIModel),
		OpenAIBaseURL:      envOrDefault(envOpenAIBaseURL, ""),
		SystemPrompt:       openai.DefaultSystemPrompt,
		UserPromptTemplate: openai.DefaultUserPromptTemplate,
	}
}

// TSFActive 返回目标 SEO 插件（The SEO Framework）在宿主侧是否可用。
// 默认认为可用，仅当环境变量显式取值为 0/false 时视为未激活。
func TSFActive() bool {
	raw := strings.TrimSpace(os.Getenv(envTSFActive))
	if raw == "" {
		return true
	}
	return raw != "0" && !strings.EqualFold(raw, "false")
}

// Resolve 合并默认值、持久化配置（含旧键兼容）与环境变量覆盖，返回生效配置。
// 任何被定义的覆盖变量都会让对应字段回到默认值，无视持久化内容。
func (s *Service) Resolve(ctx context.Context) (Settings, error) {
	stored, err := s.repo.Get(ctx, OptionName)
	if err != nil {
		return Settings{}, fmt.Errorf("resolve settings: %w", err)
	}
	if len(stored) == 0 {
		// 主键为空时读取旧键，只读不迁移。
		stored, err = s.repo.Get(ctx, LegacyOptionName)
		if err != nil {
			return Settings{}, fmt.Errorf("resolve legacy settings: %w", err)
		}
	}

	defaults := Defaults()

	resolved := Settings{
		AIModel:            pick(envModel, stored, keyAIModel, defaults.AIModel),
		SeoPlugin:          pick(envPlugin, stored, keyPlugin, defaults.SeoPlugin),
		OpenAIAPIKey:       pick(envOpenAIKey, stored, keyOpenAIKey, defaults.OpenAIAPIKey),
		OpenAIModel:        pick(envOpenAIModel, stored, keyOpenAIModel, defaults.OpenAIModel),
		OpenAIBaseURL:      pick(envOpenAIBaseURL, stored, keyOpenAIBaseURL, defaults.OpenAIBaseURL),
		SystemPrompt:       pickStored(stored, keySystemPrompt, defaults.SystemPrompt),
		UserPromptTemplate: pickStored(stored, keyUserPrompt, defaults.UserPromptTemplate),
	}

	resolved.OpenAIAPIKey = s.revealAPIKey(resolved.OpenAIAPIKey)
	return resolved, nil
}

// Save 校验并持久化设置。非法插件取值直接拒绝，空提示词回退默认值，API Key 加密存储。
func (s *Service) Save(ctx context.Context, input SaveInput) (Settings, error) {
	current, err := s.Resolve(ctx)
	if err != nil {
		return Settings{}, err
	}

	next := current
	if input.AIModel != nil {
		next.AIModel = strings.TrimSpace(*input.AIModel)
		if next.AIModel == "" {
			next.AIModel = ModelHeuristic
		}
	}
	if input.SeoPlugin != nil {
		plugin := strings.TrimSpace(*input.SeoPlugin)
		if plugin != PluginTSF && plugin != PluginYoast {
			return Settings{}, ErrInvalidSeoPlugin
		}
		next.SeoPlugin = plugin
	}
	if input.OpenAIAPIKey != nil {
		next.OpenAIAPIKey = strings.TrimSpace(*input.OpenAIAPIKey)
	}
	if input.OpenAIModel != nil {
		next.OpenAIModel = strings.TrimSpace(*input.OpenAIModel)
		if next.OpenAIModel == "" {
			next.OpenAIModel = defaultOpenAIModel
		}
	}
	if input.SystemPrompt != nil {
		next.SystemPrompt = strings.TrimSpace(*input.SystemPrompt)
		if next.SystemPrompt == "" {
			next.SystemPrompt = openai.DefaultSystemPrompt
		}
	}
	if input.UserPromptTemplate != nil {
		next.UserPromptTemplate = strings.TrimSpace(*input.UserPromptTemplate)
		if next.UserPromptTemplate == "" {
			next.UserPromptTemplate = openai.DefaultUserPromptTemplate
		}
	}

	values := map[string]string{
		keyAIModel:       next.AIModel,
		keyPlugin:        next.SeoPlugin,
		keyOpenAIKey:     s.sealAPIKey(next.OpenAIAPIKey),
		keyOpenAIModel:   next.OpenAIModel,
		keyOpenAIBaseURL: next.OpenAIBaseURL,
		keySystemPrompt:  next.SystemPrompt,
		keyUserPrompt:    next.UserPromptTemplate,
	}
	if err := s.repo.Save(ctx, OptionName, values); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return next, nil
}

// AsView 生成对外视图，隐藏明文 API Key。
func AsView(s Settings) View {
	return View{
		AIModel:            s.AIModel,
		SeoPlugin:          s.SeoPlugin,
		OpenAIModel:        s.OpenAIModel,
		OpenAIKeySet:       s.OpenAIAPIKey != "",
		SystemPrompt:       s.SystemPrompt,
		UserPromptTemplate: s.UserPromptTemplate,
	}
}

// sealAPIKey 在主密钥可用时用 AES-GCM 加密 key，否则保持明文（本地模式）。
func (s *Service) sealAPIKey(plain string) string {
	if plain == "" || !security.Configured() {
		return plain
	}
	sealed, err := security.Encrypt([]byte(plain))
	if err != nil {
		s.logger.Warnw("encrypt api key failed, storing plaintext", "error", err)
		return plain
	}
	return cipherPrefix + base64.StdEncoding.EncodeToString(sealed)
}

// revealAPIKey 解密带前缀的密文，失败时返回空串避免把密文当 key 使用。
func (s *Service) revealAPIKey(stored string) string {
	if !strings.HasPrefix(stored, cipherPrefix) {
		return stored
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, cipherPrefix))
	if err != nil {
		s.logger.Errorw("decode api key cipher failed", "error", err)
		return ""
	}
	plain, err := security.Decrypt(raw)
	if err != nil {
		s.logger.Errorw("decrypt api key failed", "error", err)
		return ""
	}
	return string(plain)
}

// pick 依次尝试环境覆盖、持久化值、默认值。
func pick(envKey string, stored map[string]string, storedKey, fallback string) string {
	if envDefined(envKey) {
		return fallback
	}
	return pickStored(stored, storedKey, fallback)
}

func pickStored(stored map[string]string, key, fallback string) string {
	if value, ok := stored[key]; ok && value != "" {
		return value
	}
	return fallback
}

func envDefined(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func envOrDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}
