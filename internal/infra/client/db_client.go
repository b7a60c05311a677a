/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-13 14:22:51
 * @FilePath: \seo-assistant\internal\infra\client\db_client.go
 * @LastEditTime: 2025-10-13 14:22:57
 */
package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"seo-assistant/internal/config"

	_ "github.com/go-sql-driver/mysql"
	mysqlDriver "gorm.io/driver/mysql"
	sqliteDriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	envMySQLDSN = "MYSQL_DSN"

	defaultMySQLParams = "charset=utf8mb4&parseTime=true&loc=Local"
)

// NewDB 按运行模式打开数据库：在线模式走 MySQL DSN，本地模式使用 SQLite 文件。
func NewDB(flags config.RuntimeFlags) (*gorm.DB, error) {
	config.LoadEnvFiles()

	if flags.Mode == config.ModeLocal {
		return newSQLiteDB(flags.Local.DBPath)
	}
	return newMySQLDB()
}

func newMySQLDB() (*gorm.DB, error) {
	dsn := strings.TrimSpace(os.Getenv(envMySQLDSN))
	if dsn == "" {
		return nil, fmt.Errorf("%s not set", envMySQLDSN)
	}
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?" + defaultMySQLParams
	}

	db, err := gorm.Open(mysqlDriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetConnMaxLifetime(60 * time.Minute)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)

	return db, nil
}

func newSQLiteDB(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required in local mode")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := gorm.Open(sqliteDriver.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite 写并发有限，收紧连接数避免 database is locked。
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	return db, nil
}
