package suggestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"seo-assistant/internal/infra/model/openai"
	"seo-assistant/internal/service/settings"
)

// OpenAI 调用参数，与网页端生成体验保持一致：低温度保证稳定输出，json_object
// 强制模型返回结构化结果。
const (
	providerTemperature = 0.4
	providerMaxTokens   = 250
)

// callOpenAI 调用 OpenAI Chat Completion 生成元数据建议。返回的 Bundle 只包含模型
// 实际产出的字段，由调用方负责与启发式基线合并。
func callOpenAI(ctx context.Context, payload GenerationPayload, cfg settings.Settings) (Bundle, *openai.ChatCompletionUsage, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return Bundle{}, nil, ErrMissingAPIKey
	}

	systemPrompt := cfg.SystemPrompt
	if strings.TrimSpace(payload.SystemPrompt) != "" {
		systemPrompt = payload.SystemPrompt
	}
	userTemplate := cfg.UserPromptTemplate
	if strings.TrimSpace(payload.UserPromptTemplate) != "" {
		userTemplate = payload.UserPromptTemplate
	}

	rawContent := payload.RawBlocks
	if strings.TrimSpace(rawContent) == "" {
		rawContent = payload.Content
	}
	userPrompt := strings.NewReplacer(
		"{{title}}", payload.Title,
		"{{raw_content}}", rawContent,
	).Replace(userTemplate)

	opts := make([]openai.Option, 0, 1)
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	client := openai.NewClient(cfg.OpenAIAPIKey, opts...)

	resp, err := client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.OpenAIModel,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:      providerMaxTokens,
		Temperature:    providerTemperature,
		ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		// APIError 原样向上传递，handler 依据状态码细分错误码；
		// 其余视为网络层失败。
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return Bundle{}, nil, err
		}
		return Bundle{}, nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
	}

	content := strings.TrimSpace(resp.FirstMessageContent())
	if content == "" {
		return Bundle{}, resp.Usage, ErrEmptyProviderReply
	}

	// 模型常会附带额外键（比如 keywords 数组），只要顶层是 JSON 对象就接受，
	// 再从中挑取识别的字符串字段。
	var fields map[string]any
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		return Bundle{}, resp.Usage, fmt.Errorf("%w: %v", ErrUnparsableProviderReply, err)
	}

	bundle := Bundle{
		MetaTitle:            stringField(fields, "meta_title"),
		MetaDescription:      stringField(fields, "meta_description"),
		OpenGraphDescription: stringField(fields, "open_graph_description"),
		TwitterDescription:   stringField(fields, "twitter_description"),
	}
	if bundle.MetaTitle == "" {
		bundle.MetaTitle = payload.Title
	}
	return bundle, resp.Usage, nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}
