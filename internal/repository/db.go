package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
// DSN 以 sqlite: 开头时使用内嵌 SQLite（开发与测试），否则使用 PostgreSQL
func InitDB(databaseURL string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(logger.Get(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}

	var (
		db       *gorm.DB
		err      error
		isSQLite = strings.HasPrefix(databaseURL, "sqlite:")
	)
	if isSQLite {
		db, err = gorm.Open(sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite:")), gormCfg)
	} else {
		db, err = gorm.Open(postgres.Open(databaseURL), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	if isSQLite {
		// 内存库每个连接都是独立的数据库
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	return db, nil
}

// AutoMigrate 自动迁移表结构
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Follow{},
		&model.Movie{},
		&model.Series{},
		&model.Status{},
		&model.Comment{},
	); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}
	// 状态台账：每个用户对同一部电影/剧集最多一行
	for _, stmt := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_status_user_movie ON statuses (user_id, movie_id) WHERE movie_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_status_user_series ON statuses (user_id, series_id) WHERE series_id IS NOT NULL",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("创建状态唯一索引失败: %w", err)
		}
	}
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB      *gorm.DB
	User    *UserRepository
	Follow  *FollowRepository
	Movie   *MediaRepository[model.Movie, *model.Movie]
	Series  *MediaRepository[model.Series, *model.Series]
	Status  *StatusRepository
	Comment *CommentRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:      db,
		User:    NewUserRepository(db),
		Follow:  NewFollowRepository(db),
		Movie:   NewMediaRepository[model.Movie](db),
		Series:  NewMediaRepository[model.Series](db),
		Status:  NewStatusRepository(db),
		Comment: NewCommentRepository(db),
	}
}

// InTx 在同一事务中执行多步写操作，fn 返回错误时整体回滚
func (r *Repositories) InTx(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
