package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/metrics"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/repository"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
)

// importTimeout 单次导入（含补全）的上限
const importTimeout = 30 * time.Second

// MediaService 电影/剧集记录的业务逻辑，两种类型共用一套实现
type MediaService[T model.Media, PT model.MediaPtr[T]] struct {
	repos   *repository.Repositories
	pick    func(*repository.Repositories) *repository.MediaRepository[T, PT]
	catalog Catalog
	kind    model.MediaKind
	group   singleflight.Group
	log     *logrus.Entry
}

type (
	MovieService  = MediaService[model.Movie, *model.Movie]
	SeriesService = MediaService[model.Series, *model.Series]
)

func NewMovieService(repos *repository.Repositories, catalog Catalog) *MovieService {
	return newMediaService(repos, catalog, func(r *repository.Repositories) *repository.MediaRepository[model.Movie, *model.Movie] {
		return r.Movie
	})
}

func NewSeriesService(repos *repository.Repositories, catalog Catalog) *SeriesService {
	return newMediaService(repos, catalog, func(r *repository.Repositories) *repository.MediaRepository[model.Series, *model.Series] {
		return r.Series
	})
}

func newMediaService[T model.Media, PT model.MediaPtr[T]](
	repos *repository.Repositories,
	catalog Catalog,
	pick func(*repository.Repositories) *repository.MediaRepository[T, PT],
) *MediaService[T, PT] {
	kind := PT(new(T)).Kind()
	return &MediaService[T, PT]{
		repos:   repos,
		pick:    pick,
		catalog: catalog,
		kind:    kind,
		log:     logger.Get().WithField("kind", string(kind)),
	}
}

// Kind 当前服务处理的类型
func (s *MediaService[T, PT]) Kind() model.MediaKind { return s.kind }

func (s *MediaService[T, PT]) repo() *repository.MediaRepository[T, PT] {
	return s.pick(s.repos)
}

func (s *MediaService[T, PT]) subject(id uint) model.Subject {
	if s.kind == model.KindMovie {
		return model.MovieSubject(id)
	}
	return model.SeriesSubject(id)
}

// ListForUser 用户自己的记录，按创建时间倒序
func (s *MediaService[T, PT]) ListForUser(ctx context.Context, userID uint) ([]PT, error) {
	return s.repo().ListByUser(ctx, userID)
}

// GetByID 查询单条记录
func (s *MediaService[T, PT]) GetByID(ctx context.Context, id uint) (PT, error) {
	rec, err := s.repo().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// getOwned 查询并校验归属
func (s *MediaService[T, PT]) getOwned(ctx context.Context, actor, id uint) (PT, error) {
	rec, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Record().UserID != actor {
		return nil, ErrForbidden
	}
	return rec, nil
}

// Search 在 TMDB 中搜索标题，取第一条结果导入到用户名下
func (s *MediaService[T, PT]) Search(ctx context.Context, userID uint, query string) (PT, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	hit, err := s.catalog.Search(ctx, s.kind, query)
	if err != nil {
		return nil, err
	}
	return s.importOrFetch(ctx, userID, hit)
}

// ImportOrFetch 按 TMDB ID 导入，已存在则直接返回
func (s *MediaService[T, PT]) ImportOrFetch(ctx context.Context, userID uint, tmdbID int, titleHint string) (PT, error) {
	if tmdbID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.importOrFetch(ctx, userID, &model.CatalogMedia{
		TMDBID: tmdbID,
		Kind:   s.kind,
		Title:  strings.TrimSpace(titleHint),
	})
}

func (s *MediaService[T, PT]) importOrFetch(ctx context.Context, userID uint, seed *model.CatalogMedia) (PT, error) {
	key := fmt.Sprintf("%d:%d", userID, seed.TMDBID)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// 共享的导入不随第一个调用方断开而取消
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), importTimeout)
		defer cancel()
		return s.importOnce(sharedCtx, userID, seed)
	})
	if err != nil {
		return nil, err
	}
	return v.(PT), nil
}

func (s *MediaService[T, PT]) importOnce(ctx context.Context, userID uint, seed *model.CatalogMedia) (PT, error) {
	repo := s.repo()
	existing, err := repo.FindByUserAndTMDB(ctx, userID, seed.TMDBID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// 先写入占位记录，再尝试补全
	rec := PT(new(T))
	r := rec.Record()
	r.TMDBID = seed.TMDBID
	r.UserID = userID
	r.Status = model.StatusPending
	r.Title = fmt.Sprintf("TMDB #%d", seed.TMDBID)
	r.Genre = datatypes.JSONSlice[string]{}
	r.Cast = datatypes.JSONSlice[string]{}
	rec.ApplyCatalog(seed)

	if err := repo.Create(ctx, rec); err != nil {
		// 并发导入撞上唯一约束时读回已有记录
		if again, ferr := repo.FindByUserAndTMDB(ctx, userID, seed.TMDBID); ferr == nil && again != nil {
			return again, nil
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"id": r.ID, "tmdb_id": r.TMDBID, "user_id": userID}).Info("[Media] 已导入")

	if err := s.enrich(ctx, rec); err != nil {
		s.log.WithError(err).WithField("tmdb_id", r.TMDBID).Warn("[Media] 补全详情失败，保留占位记录")
	}
	return rec, nil
}

// enrich 拉取详情并写回目录字段
func (s *MediaService[T, PT]) enrich(ctx context.Context, rec PT) error {
	r := rec.Record()
	details, err := s.catalog.Details(ctx, s.kind, r.TMDBID)
	if err != nil {
		metrics.CatalogEnrichFailures.WithLabelValues(string(s.kind)).Inc()
		return err
	}
	rec.ApplyCatalog(details)
	r.Enriched = true
	return s.repo().SaveCatalog(ctx, rec)
}

// Refresh 重新拉取 TMDB 详情，仅所有者可操作
func (s *MediaService[T, PT]) Refresh(ctx context.Context, actor, id uint) (PT, error) {
	rec, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateStatus 修改记录上的状态，同时写入所有者的状态台账
func (s *MediaService[T, PT]) UpdateStatus(ctx context.Context, actor, id uint, status string) (PT, error) {
	st, err := model.ParseMediaStatus(status)
	if err != nil {
		return nil, ErrInvalidInput
	}
	rec, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	err = s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		if err := s.pick(tx).UpdateStatus(ctx, id, st); err != nil {
			return err
		}
		_, _, err := writeLedger(ctx, tx, actor, s.subject(id), st, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	rec.Record().Status = st
	return rec, nil
}

// UpdateComment 修改记录上的短评
func (s *MediaService[T, PT]) UpdateComment(ctx context.Context, actor, id uint, comment string) (PT, error) {
	rec, err := s.getOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo().UpdateComment(ctx, id, comment); err != nil {
		return nil, err
	}
	rec.Record().Comment = comment
	return rec, nil
}

// Delete 删除记录，关联的状态与评论在同一事务中一并删除
func (s *MediaService[T, PT]) Delete(ctx context.Context, actor, id uint) error {
	if _, err := s.getOwned(ctx, actor, id); err != nil {
		return err
	}
	var statuses, comments int64
	err := s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		var err error
		if s.kind == model.KindMovie {
			if statuses, err = tx.Status.DeleteByMovie(ctx, id); err != nil {
				return err
			}
			if comments, err = tx.Comment.DeleteByMovie(ctx, id); err != nil {
				return err
			}
		} else {
			if statuses, err = tx.Status.DeleteBySeries(ctx, id); err != nil {
				return err
			}
			if comments, err = tx.Comment.DeleteBySeries(ctx, id); err != nil {
				return err
			}
		}
		n, err := s.pick(tx).Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"id": id, "statuses": statuses, "comments": comments}).Info("[Media] 已删除")
	return nil
}

// MediaLibrary 跨电影与剧集的聚合查询
type MediaLibrary struct {
	repos *repository.Repositories
}

func NewMediaLibrary(repos *repository.Repositories) *MediaLibrary {
	return &MediaLibrary{repos: repos}
}

// ListAllMedia 所有用户的电影与剧集，按创建时间倒序
func (l *MediaLibrary) ListAllMedia(ctx context.Context) ([]model.MediaItem, error) {
	movies, err := l.repos.Movie.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	series, err := l.repos.Series.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	items := append(toItems(movies), toItems(series)...)
	sortItems(items, func(it model.MediaItem) int64 { return it.CreatedAt.UnixNano() })
	if err := attachOwners(ctx, l.repos.User, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListWithComments 带短评的记录，按更新时间倒序
func (l *MediaLibrary) ListWithComments(ctx context.Context) ([]model.MediaItem, error) {
	movies, err := l.repos.Movie.ListCommented(ctx)
	if err != nil {
		return nil, err
	}
	series, err := l.repos.Series.ListCommented(ctx)
	if err != nil {
		return nil, err
	}
	items := append(toItems(movies), toItems(series)...)
	sortItems(items, func(it model.MediaItem) int64 { return it.UpdatedAt.UnixNano() })
	if err := attachOwners(ctx, l.repos.User, items); err != nil {
		return nil, err
	}
	return items, nil
}

func toItems[T model.Media, PT model.MediaPtr[T]](records []PT) []model.MediaItem {
	items := make([]model.MediaItem, 0, len(records))
	for _, rec := range records {
		r := rec.Record()
		items = append(items, model.MediaItem{
			Kind:      rec.Kind(),
			Owner:     model.UserSummary{ID: r.UserID},
			Media:     rec,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			ID:        r.ID,
		})
	}
	return items
}

// sortItems 按时间倒序，时间相同按 ID 倒序
func sortItems(items []model.MediaItem, at func(model.MediaItem) int64) {
	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := at(items[i]), at(items[j])
		if ai != aj {
			return ai > aj
		}
		return items[i].ID > items[j].ID
	})
}

// attachOwners 填充所有者用户名
func attachOwners(ctx context.Context, users *repository.UserRepository, items []model.MediaItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Owner.ID)
	}
	summaries, err := users.FindSummaries(ctx, ids)
	if err != nil {
		return err
	}
	for i := range items {
		if sum, ok := summaries[items[i].Owner.ID]; ok {
			items[i].Owner = sum
		}
	}
	return nil
}
