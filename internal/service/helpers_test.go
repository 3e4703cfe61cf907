package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/repository"
)

// setupRepos 创建测试用的 SQLite 内存数据库
func setupRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := repository.InitDB("sqlite::memory:")
	if err != nil {
		t.Fatalf("无法创建测试数据库: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewRepositories(db)
}

func createUser(t *testing.T, repos *repository.Repositories, name string) *model.User {
	t.Helper()
	u, err := repos.User.Create(context.Background(), name+"@example.com", name, "secret123")
	if err != nil {
		t.Fatalf("创建用户 %s 失败: %v", name, err)
	}
	return u
}

func createMovie(t *testing.T, repos *repository.Repositories, owner uint, tmdbID int, title string) *model.Movie {
	t.Helper()
	m := &model.Movie{}
	m.UserID = owner
	m.TMDBID = tmdbID
	m.Title = title
	m.Status = model.StatusPending
	if err := repos.Movie.Create(context.Background(), m); err != nil {
		t.Fatalf("创建电影失败: %v", err)
	}
	return m
}

func createSeries(t *testing.T, repos *repository.Repositories, owner uint, tmdbID int, title string) *model.Series {
	t.Helper()
	s := &model.Series{}
	s.UserID = owner
	s.TMDBID = tmdbID
	s.Title = title
	s.Status = model.StatusPending
	if err := repos.Series.Create(context.Background(), s); err != nil {
		t.Fatalf("创建剧集失败: %v", err)
	}
	return s
}

// touch 固定 updated_at，避免排序依赖写入时间
func touch(t *testing.T, repos *repository.Repositories, table string, id uint, at time.Time) {
	t.Helper()
	if err := repos.DB.Table(table).Where("id = ?", id).UpdateColumn("updated_at", at).Error; err != nil {
		t.Fatalf("更新 %s.updated_at 失败: %v", table, err)
	}
}

// fakeCatalog 内存中的目录实现
type fakeCatalog struct {
	mu          sync.Mutex
	search      map[string]*model.CatalogMedia
	details     map[int]*model.CatalogMedia
	detailsErr  error
	detailCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		search:  map[string]*model.CatalogMedia{},
		details: map[int]*model.CatalogMedia{},
	}
}

func (f *fakeCatalog) Search(_ context.Context, kind model.MediaKind, query string) (*model.CatalogMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hit, ok := f.search[string(kind)+":"+query]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, query)
	}
	c := *hit
	return &c, nil
}

func (f *fakeCatalog) Details(_ context.Context, kind model.MediaKind, tmdbID int) (*model.CatalogMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	d, ok := f.details[tmdbID]
	if !ok || d.Kind != kind {
		return nil, fmt.Errorf("%w: %d", ErrCatalogNotFound, tmdbID)
	}
	c := *d
	return &c, nil
}
