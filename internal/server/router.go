package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"seo-assistant/internal/handler"
	"seo-assistant/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	SeoHandler *handler.SeoHandler
	AuthMW     middleware.Authenticator
}

// NewRouter 构建应用的 Gin Engine，汇总 REST 接口与公共中间件配置。
func NewRouter(opts RouterOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// gin 中间件配置
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  false,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return false
			}
			if origin == "null" {
				return true
			}
			if strings.HasPrefix(origin, "http://localhost:") {
				return true
			}
			if strings.HasPrefix(origin, "http://127.0.0.1:") {
				return true
			}
			return false
		},
	}))
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: gin.LogFormatter(func(params gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s\" %d %s\n",
				params.ClientIP,
				params.TimeStamp.Format(time.RFC3339),
				params.Method,
				params.Path,
				params.StatusCode,
				params.Latency,
			)
		}),
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		seo := api.Group("/seo")
		if opts.AuthMW != nil {
			seo.Use(opts.AuthMW.Handle())
		}
		if opts.SeoHandler != nil {
			seo.POST("/suggest", opts.SeoHandler.Suggest)
			seo.POST("/apply", opts.SeoHandler.Apply)
			seo.POST("/social-image", opts.SeoHandler.SocialImage)
			seo.GET("/settings", opts.SeoHandler.GetSettings)
			seo.PUT("/settings", opts.SeoHandler.UpdateSettings)
		}
	}

	return r
}
