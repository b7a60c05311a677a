package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// ModeLocal 表示使用本地 SQLite 的开发/演示模式。
	ModeLocal = "local"
	// ModeOnline 表示连接 MySQL 的默认在线模式。
	ModeOnline = "online"

	defaultPort           = "8787"
	defaultLocalDBRelPath = "data/seo-assistant-local.db"
)

// RuntimeFlags 汇总服务启动所需的运行期配置。
type RuntimeFlags struct {
	Mode      string
	Port      string
	JWTSecret string
	Local     LocalRuntime
}

// LocalRuntime 描述本地模式下的附加配置。
type LocalRuntime struct {
	DBPath string
}

// LoadRuntimeFlags 读取环境变量，推导运行模式、监听端口与鉴权密钥。
func LoadRuntimeFlags() RuntimeFlags {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if mode == "" {
		mode = ModeOnline
	}

	port := strings.TrimSpace(os.Getenv("SERVER_PORT"))
	if port == "" {
		port = defaultPort
	}

	local := LocalRuntime{DBPath: normalisePath(defaultLocalDBRelPath)}
	if rawPath := strings.TrimSpace(os.Getenv("LOCAL_SQLITE_PATH")); rawPath != "" {
		local.DBPath = normalisePath(rawPath)
	}

	return RuntimeFlags{
		Mode:      mode,
		Port:      port,
		JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		Local:     local,
	}
}

// normalisePath 将路径展开为绝对路径，兼容 ~ 前缀与相对路径。
func normalisePath(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			raw = filepath.Join(home, strings.TrimPrefix(raw, "~"))
		}
	}
	if filepath.IsAbs(raw) {
		return raw
	}
	if abs, err := filepath.Abs(raw); err == nil {
		return abs
	}
	return raw
}
