/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 20:02:45
 * @FilePath: \seo-assistant\internal\bootstrap\bootstrap.go
 * @LastEditTime: 2025-10-14 09:01:10
 */
package bootstrap

import (
	"net/http"

	"go.uber.org/zap"

	"seo-assistant/internal/app"
	"seo-assistant/internal/config"
	"seo-assistant/internal/handler"
	"seo-assistant/internal/infra/metrics"
	"seo-assistant/internal/infra/ratelimit"
	"seo-assistant/internal/middleware"
	"seo-assistant/internal/repository"
	"seo-assistant/internal/server"
	settingssvc "seo-assistant/internal/service/settings"
	"seo-assistant/internal/service/socialimage"
	suggestionsvc "seo-assistant/internal/service/suggestion"
)

// Application 聚合装配完成的服务与 HTTP 路由。
type Application struct {
	Resources     *app.Resources
	SettingsSvc   *settingssvc.Service
	SuggestionSvc *suggestionsvc.Service
	SocialSvc     *socialimage.Service
	Router        http.Handler
}

// BuildApplication 按依赖顺序装配仓储、服务、限流与路由。
func BuildApplication(logger *zap.SugaredLogger, resources *app.Resources) (*Application, error) {
	metrics.MustRegister()

	postRepo := repository.NewPostRepository(resources.DB)
	settingsRepo := repository.NewSettingsRepository(resources.DB)
	attachmentRepo := repository.NewAttachmentRepository(resources.DB)

	settingsService := settingssvc.NewService(settingsRepo)
	suggestionService := suggestionsvc.NewService(postRepo, settingsService)
	socialService := socialimage.NewService(postRepo, attachmentRepo)

	var limiter ratelimit.Limiter
	if resources.Redis != nil {
		limiter = ratelimit.NewRedisLimiter(resources.Redis, "")
	} else {
		logger.Infow("rate limiter disabled, redis unavailable")
	}

	seoHandler := handler.NewSeoHandler(
		suggestionService,
		socialService,
		settingsService,
		postRepo,
		limiter,
		handler.SeoRateLimit{},
	)

	var authMiddleware middleware.Authenticator
	if resources.Flags.Mode == config.ModeLocal {
		// 本地模式没有登录流程，注入固定管理员，便于桌面端直接使用。
		authMiddleware = middleware.NewOfflineAuthMiddleware(1, true)
	} else {
		authMiddleware = middleware.NewAuthMiddleware(resources.Flags.JWTSecret)
	}

	router := server.NewRouter(server.RouterOptions{
		SeoHandler: seoHandler,
		AuthMW:     authMiddleware,
	})

	return &Application{
		Resources:     resources,
		SettingsSvc:   settingsService,
		SuggestionSvc: suggestionService,
		SocialSvc:     socialService,
		Router:        router,
	}, nil
}
