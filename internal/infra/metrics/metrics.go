package metrics

import (
	"strings"
	"sync"
	"time"

	"seo-assistant/internal/infra/model/openai"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	suggestionRequests     *prometheus.CounterVec
	suggestionDuration     *prometheus.HistogramVec
	suggestionTokens       *prometheus.CounterVec
	applyRequests          *prometheus.CounterVec
	socialImageRequests    *prometheus.CounterVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const namespaceMetrics = "seoassistant"

// MustRegister 初始化 Prometheus 指标并注册 Go 运行时采样器，需在应用启动阶段调用一次。
func MustRegister() {
	registerOnce.Do(func() {
		suggestionRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "generation",
					Name:      "requests_total",
					Help:      "元数据建议接口的调用次数，按执行状态统计。",
				},
				[]string{"status"},
			),
		)
		suggestionDuration = registerHistogramVec(
			prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespaceMetrics,
					Subsystem: "generation",
					Name:      "duration_seconds",
					Help:      "元数据建议的生成耗时，按生成器区分。",
					Buckets:   defaultDurationBuckets,
				},
				[]string{"model"},
			),
		)
		suggestionTokens = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "generation",
					Name:      "tokens_total",
					Help:      "模型调用消耗的 token 数量，按 token 类型拆分。",
				},
				[]string{"token_type"},
			),
		)
		applyRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "apply",
					Name:      "requests_total",
					Help:      "元数据写回接口的调用次数，按结果分类。",
				},
				[]string{"result"},
			),
		)
		socialImageRequests = registerCounterVec(
			prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespaceMetrics,
					Subsystem: "social_image",
					Name:      "requests_total",
					Help:      "社交卡片渲染接口的调用次数，按结果分类。",
				},
				[]string{"result"},
			),
		)

		registerRuntimeCollectors()
	})
}

// ObserveSuggestion 记录一次建议生成的结果、耗时与 token 消耗。
func ObserveSuggestion(status, model string, duration time.Duration, usage *openai.ChatCompletionUsage) {
	if suggestionRequests == nil || suggestionDuration == nil {
		return
	}
	suggestionRequests.WithLabelValues(normalizeLabel(status, "unknown")).Inc()
	suggestionDuration.WithLabelValues(normalizeLabel(model, "unspecified")).Observe(duration.Seconds())

	if suggestionTokens == nil || usage == nil {
		return
	}
	if usage.PromptTokens > 0 {
		suggestionTokens.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		suggestionTokens.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
	}
	if usage.TotalTokens > 0 {
		suggestionTokens.WithLabelValues("total").Add(float64(usage.TotalTokens))
	}
}

// RecordApply 记录写回接口的结果分布。
func RecordApply(result string) {
	if applyRequests == nil {
		return
	}
	applyRequests.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

// RecordSocialImage 记录社交卡片渲染的结果分布。
func RecordSocialImage(result string) {
	if socialImageRequests == nil {
		return
	}
	socialImageRequests.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	if err := prometheus.Register(collectors.NewGoCollector()); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
	if err := prometheus.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			panic(err)
		}
	}
}
