package suggestion

import "errors"

// 生成与写回链路的哨兵错误，handler 层据此映射错误码与 HTTP 状态。
var (
	// ErrMissingAPIKey 表示未配置 OpenAI API Key，此时不会发起任何网络调用。
	ErrMissingAPIKey = errors.New("openai api key is missing")
	// ErrProviderUnreachable 表示请求未到达 OpenAI，通常是网络或超时问题。
	ErrProviderUnreachable = errors.New("openai request failed to complete")
	// ErrEmptyProviderReply 表示模型响应里没有任何消息内容。
	ErrEmptyProviderReply = errors.New("openai response was empty")
	// ErrUnparsableProviderReply 表示消息内容不是合法的 JSON 对象。
	ErrUnparsableProviderReply = errors.New("could not parse openai response")
	// ErrUnsupportedSeoPlugin 表示当前选择的目标 SEO 插件尚未支持。
	ErrUnsupportedSeoPlugin = errors.New("selected seo plugin is not supported yet")
)
