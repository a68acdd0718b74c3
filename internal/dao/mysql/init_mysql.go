// Package mysql 负责建立关系数据库连接、自动迁移表结构、初始化 Repository 层
// 按 databaseConfig.driver 选择 MySQL 或 PostgreSQL 方言
package mysql

import (
	"fmt"
	"time"

	"medichat_server/internal/config"
	"medichat_server/internal/dao/mysql/repository"
	"medichat_server/internal/model"

	"go.uber.org/zap"
	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Init 初始化数据库连接并返回 Repository 层实例
func Init(conf *config.DatabaseConfig) (*repository.Repositories, error) {
	dialector, err := Dialector(conf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", conf.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(32)
	sqlDB.SetMaxIdleConns(8)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(60 * time.Minute)

	if conf.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	zap.L().Info("database connected",
		zap.String("driver", conf.Driver),
		zap.String("host", conf.Host),
		zap.String("database", conf.DatabaseName))
	return repository.NewRepositories(db), nil
}

// Dialector 根据驱动名构建 DSN 和 GORM 方言
func Dialector(conf *config.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case "", "mysql":
		// user:password@tcp(host:port)/database?params
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			conf.User, conf.Password, conf.Host, conf.Port, conf.DatabaseName)
		return mysqldriver.Open(dsn), nil
	case "postgres":
		sslMode := conf.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&TimeZone=UTC",
			conf.User, conf.Password, conf.Host, conf.Port, conf.DatabaseName, sslMode)
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", conf.Driver)
}

// Migrate 自动迁移表结构
// 目录表正常情况下由外部系统创建，这里迁移只为开发和测试环境补齐表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Message{},
		&model.DoctorProfile{},
		&model.NurseProfile{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
