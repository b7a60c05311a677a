/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 19:40:12
 * @FilePath: \seo-assistant\internal\app\app.go
 * @LastEditTime: 2025-10-14 08:55:31
 */
package app

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/redis/go-redis/v9"

	"seo-assistant/internal/config"
	"seo-assistant/internal/domain/content"
	"seo-assistant/internal/infra/client"
	appLogger "seo-assistant/internal/infra/logger"
)

// Resources 聚合应用的运行期资源：配置、数据库与可选的 Redis。
type Resources struct {
	Flags config.RuntimeFlags
	DB    *gorm.DB
	Redis *redis.Client
}

// Bootstrap 加载环境配置，建立数据库连接并完成表结构迁移。
// Redis 未配置时降级为 nil，调用方按无限流处理。
func Bootstrap(ctx context.Context) (*Resources, error) {
	config.LoadEnvFiles()
	flags := config.LoadRuntimeFlags()

	db, err := client.NewDB(flags)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&content.Post{},
		&content.PostMeta{},
		&content.Setting{},
		&content.Attachment{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	var redisClient *redis.Client
	redisOpts, err := client.NewDefaultRedisOptions()
	if err != nil {
		appLogger.S().Infow("redis not configured, rate limiting disabled", "reason", err)
	} else {
		redisClient, err = client.NewRedisClient(redisOpts)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	return &Resources{
		Flags: flags,
		DB:    db,
		Redis: redisClient,
	}, nil
}

// Close 依次释放持有的连接资源。
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			return err
		}
	}
	if r.DB != nil {
		sqlDB, err := r.DB.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Close(); err != nil {
			return err
		}
	}
	return nil
}

// WithShutdown 统一处理应用主循环的退出与错误上报。
func WithShutdown(ctx context.Context, cancel func(), fn func(context.Context) error) {
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
