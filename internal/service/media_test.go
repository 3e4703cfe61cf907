package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/repository"
)

func TestMediaImportOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("导入后从目录补全", func(t *testing.T) {
		repos := setupRepos(t)
		alice := createUser(t, repos, "alice")
		catalog := newFakeCatalog()
		catalog.details[603] = &model.CatalogMedia{
			TMDBID: 603, Kind: model.KindMovie, Title: "The Matrix",
			Genres: []string{"Acción"}, Cast: []string{"Keanu Reeves"},
			Director: "Lana Wachowski", Runtime: 136, Rating: 8.2,
		}
		svc := NewMovieService(repos, catalog)

		m, err := svc.ImportOrFetch(ctx, alice.ID, 603, "matrix")
		if err != nil {
			t.Fatalf("导入失败: %v", err)
		}
		if !m.Enriched || m.Title != "The Matrix" || m.Director != "Lana Wachowski" {
			t.Fatalf("补全结果不符合预期: %+v", m)
		}
		if m.Status != model.StatusPending || m.Comment != "" {
			t.Fatalf("新记录应为 pending 且无短评，实际 %s/%q", m.Status, m.Comment)
		}

		stored, err := repos.Movie.FindByID(ctx, m.ID)
		if err != nil || stored == nil {
			t.Fatalf("读取记录失败: %v", err)
		}
		if len(stored.Genre) != 1 || stored.Genre[0] != "Acción" || stored.Runtime != 136 {
			t.Fatalf("目录字段未持久化: %+v", stored)
		}
	})

	t.Run("重复导入返回同一条记录", func(t *testing.T) {
		repos := setupRepos(t)
		alice := createUser(t, repos, "alice")
		catalog := newFakeCatalog()
		catalog.details[603] = &model.CatalogMedia{TMDBID: 603, Kind: model.KindMovie, Title: "The Matrix"}
		svc := NewMovieService(repos, catalog)

		first, err := svc.ImportOrFetch(ctx, alice.ID, 603, "")
		if err != nil {
			t.Fatalf("第一次导入失败: %v", err)
		}
		second, err := svc.ImportOrFetch(ctx, alice.ID, 603, "")
		if err != nil {
			t.Fatalf("第二次导入失败: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("期望同一条记录，实际 %d 与 %d", first.ID, second.ID)
		}
		if catalog.detailCalls != 1 {
			t.Fatalf("已存在的记录不应再次补全，调用次数 %d", catalog.detailCalls)
		}
	})

	t.Run("并发导入只产生一条记录", func(t *testing.T) {
		repos := setupRepos(t)
		alice := createUser(t, repos, "alice")
		catalog := newFakeCatalog()
		catalog.details[27205] = &model.CatalogMedia{TMDBID: 27205, Kind: model.KindMovie, Title: "Inception"}
		svc := NewMovieService(repos, catalog)

		var wg sync.WaitGroup
		ids := make([]uint, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m, err := svc.ImportOrFetch(ctx, alice.ID, 27205, "")
				if err != nil {
					t.Errorf("并发导入失败: %v", err)
					return
				}
				ids[i] = m.ID
			}(i)
		}
		wg.Wait()

		list, err := svc.ListForUser(ctx, alice.ID)
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("期望 1 条记录，实际 %d", len(list))
		}
		for _, id := range ids {
			if id != list[0].ID {
				t.Fatalf("并发导入返回了不同的记录: %v", ids)
			}
		}
	})

	t.Run("补全失败时保留占位记录", func(t *testing.T) {
		repos := setupRepos(t)
		alice := createUser(t, repos, "alice")
		catalog := newFakeCatalog()
		catalog.detailsErr = ErrCatalogUnavailable
		svc := NewSeriesService(repos, catalog)

		s, err := svc.ImportOrFetch(ctx, alice.ID, 1399, "Juego de tronos")
		if err != nil {
			t.Fatalf("补全失败不应导致导入失败: %v", err)
		}
		if s.Enriched || s.Title != "Juego de tronos" {
			t.Fatalf("占位记录不符合预期: %+v", s)
		}
		if s.Kind() != model.KindSeries {
			t.Fatalf("类型应为 series")
		}
	})

	t.Run("非法 TMDB ID", func(t *testing.T) {
		repos := setupRepos(t)
		svc := NewMovieService(repos, newFakeCatalog())
		if _, err := svc.ImportOrFetch(ctx, 1, 0, ""); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("期望 ErrInvalidInput，实际 %v", err)
		}
	})
}

func TestMediaSearch(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	catalog := newFakeCatalog()
	catalog.search["movie:matrix"] = &model.CatalogMedia{TMDBID: 603, Kind: model.KindMovie, Title: "The Matrix"}
	catalog.details[603] = &model.CatalogMedia{TMDBID: 603, Kind: model.KindMovie, Title: "The Matrix", Runtime: 136}
	svc := NewMovieService(repos, catalog)

	m, err := svc.Search(ctx, alice.ID, "  matrix ")
	if err != nil {
		t.Fatalf("搜索失败: %v", err)
	}
	if m.TMDBID != 603 || m.Runtime != 136 {
		t.Fatalf("搜索结果不符合预期: %+v", m)
	}

	if _, err := svc.Search(ctx, alice.ID, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("空关键词应返回 ErrInvalidInput，实际 %v", err)
	}
	if _, err := svc.Search(ctx, alice.ID, "nada"); !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("无结果应返回 ErrCatalogNotFound，实际 %v", err)
	}
}

func TestMediaUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	bob := createUser(t, repos, "bob")
	m := createMovie(t, repos, alice.ID, 603, "The Matrix")
	svc := NewMovieService(repos, newFakeCatalog())

	updated, err := svc.UpdateStatus(ctx, alice.ID, m.ID, "watched")
	if err != nil {
		t.Fatalf("更新状态失败: %v", err)
	}
	if updated.Status != model.StatusViewed {
		t.Fatalf("watched 应规范化为 viewed，实际 %s", updated.Status)
	}

	row, err := repos.Status.FindByUserAndSubject(ctx, alice.ID, model.MovieSubject(m.ID))
	if err != nil || row == nil {
		t.Fatalf("台账中应有记录: %v", err)
	}
	if row.Status != model.StatusViewed {
		t.Fatalf("台账状态应为 viewed，实际 %s", row.Status)
	}

	if _, err := svc.UpdateStatus(ctx, alice.ID, m.ID, "dropped"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("非法状态应返回 ErrInvalidInput，实际 %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, bob.ID, m.ID, "favorite"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("非所有者应返回 ErrForbidden，实际 %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, alice.ID, 9999, "favorite"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("不存在的记录应返回 ErrNotFound，实际 %v", err)
	}
}

func TestMediaUpdateComment(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	s := createSeries(t, repos, alice.ID, 1399, "Juego de tronos")
	svc := NewSeriesService(repos, newFakeCatalog())

	updated, err := svc.UpdateComment(ctx, alice.ID, s.ID, "  Imprescindible  ")
	if err != nil {
		t.Fatalf("更新短评失败: %v", err)
	}
	if updated.Comment != "  Imprescindible  " {
		t.Fatalf("短评应原样覆盖，实际 %q", updated.Comment)
	}
	stored, _ := repos.Series.FindByID(ctx, s.ID)
	if stored.Comment != "  Imprescindible  " {
		t.Fatalf("短评未持久化: %q", stored.Comment)
	}

	// 空字符串同样直接覆盖
	if _, err := svc.UpdateComment(ctx, alice.ID, s.ID, ""); err != nil {
		t.Fatalf("清空短评失败: %v", err)
	}
	stored, _ = repos.Series.FindByID(ctx, s.ID)
	if stored.Comment != "" {
		t.Fatalf("短评应被清空: %q", stored.Comment)
	}
}

func TestMediaDeleteCascades(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	bob := createUser(t, repos, "bob")
	m := createMovie(t, repos, alice.ID, 603, "The Matrix")
	other := createMovie(t, repos, alice.ID, 604, "The Matrix Reloaded")

	statuses := NewStatusService(repos)
	comments := NewCommentService(repos)
	if _, _, err := statuses.Upsert(ctx, bob.ID, model.MovieSubject(m.ID), "favorite"); err != nil {
		t.Fatalf("创建状态失败: %v", err)
	}
	if _, err := comments.Create(ctx, bob.ID, "Obra maestra", model.MovieSubject(m.ID)); err != nil {
		t.Fatalf("创建评论失败: %v", err)
	}
	if _, err := comments.Create(ctx, bob.ID, "Peor que la primera", model.MovieSubject(other.ID)); err != nil {
		t.Fatalf("创建评论失败: %v", err)
	}

	svc := NewMovieService(repos, newFakeCatalog())
	if err := svc.Delete(ctx, bob.ID, m.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("非所有者删除应返回 ErrForbidden，实际 %v", err)
	}
	if err := svc.Delete(ctx, alice.ID, m.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}

	if _, err := svc.GetByID(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("删除后应查不到记录，实际 %v", err)
	}
	if n, _ := repos.Status.CountByUserAndSubject(ctx, bob.ID, model.MovieSubject(m.ID)); n != 0 {
		t.Fatalf("关联状态应被删除，剩余 %d", n)
	}
	if n, _ := repos.Comment.CountBySubject(ctx, model.MovieSubject(m.ID)); n != 0 {
		t.Fatalf("关联评论应被删除，剩余 %d", n)
	}
	if n, _ := repos.Comment.CountBySubject(ctx, model.MovieSubject(other.ID)); n != 1 {
		t.Fatalf("其他电影的评论不应受影响，剩余 %d", n)
	}

	if err := svc.Delete(ctx, alice.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("重复删除应返回 ErrNotFound，实际 %v", err)
	}
}

func TestMediaLibrary(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	bob := createUser(t, repos, "bob")

	m := createMovie(t, repos, alice.ID, 603, "The Matrix")
	s := createSeries(t, repos, bob.ID, 1399, "Juego de tronos")
	quiet := createMovie(t, repos, bob.ID, 604, "The Matrix Reloaded")

	movies := NewMovieService(repos, newFakeCatalog())
	series := NewSeriesService(repos, newFakeCatalog())
	if _, err := movies.UpdateComment(ctx, alice.ID, m.ID, "Un clásico"); err != nil {
		t.Fatalf("更新短评失败: %v", err)
	}
	if _, err := series.UpdateComment(ctx, bob.ID, s.ID, "Final flojo"); err != nil {
		t.Fatalf("更新短评失败: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	touch(t, repos, "movies", m.ID, base)
	touch(t, repos, "series", s.ID, base.Add(time.Minute))

	lib := NewMediaLibrary(repos)

	all, err := lib.ListAllMedia(ctx)
	if err != nil {
		t.Fatalf("查询全部失败: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("期望 3 条，实际 %d", len(all))
	}
	owners := map[uint]string{}
	for _, it := range all {
		owners[it.ID] = it.Owner.Username
	}
	if owners[quiet.ID] != "bob" {
		t.Fatalf("应附带所有者用户名: %+v", all)
	}

	commented, err := lib.ListWithComments(ctx)
	if err != nil {
		t.Fatalf("查询带短评的记录失败: %v", err)
	}
	if len(commented) != 2 {
		t.Fatalf("期望 2 条带短评的记录，实际 %d", len(commented))
	}
	if commented[0].Kind != model.KindSeries || commented[0].Owner.Username != "bob" {
		t.Fatalf("应按更新时间倒序，第一条为剧集: %+v", commented[0])
	}
	if commented[1].Kind != model.KindMovie || commented[1].Owner.Username != "alice" {
		t.Fatalf("第二条应为 alice 的电影: %+v", commented[1])
	}
}

func TestMediaRefresh(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	bob := createUser(t, repos, "bob")
	catalog := newFakeCatalog()
	svc := NewMovieService(repos, catalog)

	m := createMovie(t, repos, alice.ID, 603, "matrix")
	if _, err := svc.UpdateComment(ctx, alice.ID, m.ID, "Obra maestra"); err != nil {
		t.Fatalf("更新短评失败: %v", err)
	}

	catalog.details[603] = &model.CatalogMedia{TMDBID: 603, Kind: model.KindMovie, Title: "The Matrix", Director: "Lana Wachowski"}
	if _, err := svc.Refresh(ctx, bob.ID, m.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("他人刷新应返回 ErrForbidden，实际 %v", err)
	}

	got, err := svc.Refresh(ctx, alice.ID, m.ID)
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if !got.Enriched || got.Title != "The Matrix" || got.Director != "Lana Wachowski" {
		t.Fatalf("刷新结果不符合预期: %+v", got)
	}
	stored, _ := repos.Movie.FindByID(ctx, m.ID)
	if stored.Comment != "Obra maestra" || stored.Director != "Lana Wachowski" {
		t.Fatalf("刷新不应覆盖短评: %+v", stored)
	}

	catalog.detailsErr = ErrCatalogUnavailable
	if _, err := svc.Refresh(ctx, alice.ID, m.ID); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("目录不可用时应返回错误，实际 %v", err)
	}
}

func TestMediaImportSurvivesCallerCancel(t *testing.T) {
	repos := setupRepos(t)
	alice := createUser(t, repos, "alice")
	catalog := newFakeCatalog()
	catalog.details[603] = &model.CatalogMedia{TMDBID: 603, Kind: model.KindMovie, Title: "The Matrix"}
	svc := NewMovieService(repos, catalog)

	// 发起导入的请求已断开，共享的导入仍需完成
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := svc.ImportOrFetch(ctx, alice.ID, 603, "")
	if err != nil {
		t.Fatalf("调用方取消不应使导入失败: %v", err)
	}
	if !m.Enriched || m.Title != "The Matrix" {
		t.Fatalf("导入结果不符合预期: %+v", m)
	}
	if n := len(mustListMovies(t, repos, alice.ID)); n != 1 {
		t.Fatalf("期望 1 条记录，实际 %d", n)
	}
}

func mustListMovies(t *testing.T, repos *repository.Repositories, userID uint) []*model.Movie {
	t.Helper()
	list, err := repos.Movie.ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("查询电影失败: %v", err)
	}
	return list
}
