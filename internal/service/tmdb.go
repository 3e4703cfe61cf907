package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/user/moovie-social/internal/config"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/metrics"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/utils"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	genreCacheTTL = 24 * time.Hour
	castLimit     = 5
)

// Catalog 外部影视目录
type Catalog interface {
	Search(ctx context.Context, kind model.MediaKind, query string) (*model.CatalogMedia, error)
	Details(ctx context.Context, kind model.MediaKind, tmdbID int) (*model.CatalogMedia, error)
}

// TMDBOptions 目录客户端配置
type TMDBOptions struct {
	APIKey       string // v3 api_key 参数
	Token        string // v4 Bearer Token，优先于 APIKey
	BaseURL      string
	ImageBaseURL string
	Language     string
	Timeout      time.Duration
	RateLimit    float64 // 每秒请求数
}

// TMDBOptionsFromConfig 从应用配置构造
func TMDBOptionsFromConfig(cfg *config.Config) TMDBOptions {
	return TMDBOptions{
		APIKey:       cfg.TMDBAPIKey,
		Token:        cfg.TMDBToken,
		BaseURL:      cfg.TMDBBaseURL,
		ImageBaseURL: cfg.TMDBImageBaseURL,
		Language:     cfg.TMDBLanguage,
		Timeout:      cfg.TMDBTimeout,
		RateLimit:    cfg.TMDBRateLimit,
	}
}

type TMDBService struct {
	opts    TMDBOptions
	http    *utils.HTTPClient
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
	genres  *cache.Cache
	search  CatalogCache
	group   singleflight.Group
	log     *logrus.Logger
}

// NewTMDBService 创建目录客户端，searchCache 为空时使用进程内 LRU
func NewTMDBService(opts TMDBOptions, searchCache CatalogCache) *TMDBService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.ImageBaseURL = strings.TrimRight(opts.ImageBaseURL, "/")
	if searchCache == nil {
		searchCache = NewLRUCatalogCache(1000, time.Hour)
	}

	s := &TMDBService{
		opts:    opts,
		http:    utils.NewHTTPClient(opts.Timeout),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1),
		genres:  utils.NewTTLCache(genreCacheTTL, time.Hour),
		search:  searchCache,
		log:     logger.Get(),
	}

	s.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 404 属于正常业务结果，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCatalogNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).
				Warn("[TMDB] 熔断器状态变化")
			metrics.CatalogBreakerState.Set(float64(to))
		},
	})

	return s
}

func tmdbMediaPath(kind model.MediaKind) (string, error) {
	switch kind {
	case model.KindMovie:
		return "movie", nil
	case model.KindSeries:
		return "tv", nil
	}
	return "", fmt.Errorf("%w: unknown media kind %q", ErrInvalidInput, kind)
}

// get 统一的请求入口：超时、限流、熔断与错误归类
func (s *TMDBService) get(ctx context.Context, op, path string, params url.Values, target interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("language", s.opts.Language)

	headers := map[string]string{}
	if s.opts.Token != "" {
		headers["Authorization"] = "Bearer " + s.opts.Token
	} else if s.opts.APIKey != "" {
		params.Set("api_key", s.opts.APIKey)
	}
	reqURL := s.opts.BaseURL + path + "?" + params.Encode()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		metrics.CatalogRequests.WithLabelValues(op, "unavailable").Inc()
		return fmt.Errorf("%w: rate limiter: %w", ErrCatalogUnavailable, err)
	}

	_, err := s.breaker.Execute(func() (struct{}, error) {
		err := s.http.GetJSON(ctx, reqURL, headers, target)
		var statusErr *utils.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return struct{}{}, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
		}
		return struct{}{}, err
	})

	switch {
	case err == nil:
		metrics.CatalogRequests.WithLabelValues(op, "ok").Inc()
		return nil
	case errors.Is(err, ErrCatalogNotFound):
		metrics.CatalogRequests.WithLabelValues(op, "not_found").Inc()
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CatalogRequests.WithLabelValues(op, "rejected").Inc()
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	default:
		metrics.CatalogRequests.WithLabelValues(op, "unavailable").Inc()
		s.log.WithError(err).WithField("op", op).Warn("[TMDB] 请求失败")
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
}

type tmdbGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tmdbSearchResponse struct {
	Results []tmdbSearchResult `json:"results"`
}

type tmdbSearchResult struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"` // 电影
	Name         string  `json:"name"`  // 电视剧
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	GenreIDs     []int   `json:"genre_ids"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
}

type tmdbDetailsResponse struct {
	ID               int         `json:"id"`
	Title            string      `json:"title"`
	Name             string      `json:"name"`
	Overview         string      `json:"overview"`
	ReleaseDate      string      `json:"release_date"`
	FirstAirDate     string      `json:"first_air_date"`
	LastAirDate      string      `json:"last_air_date"`
	Runtime          int         `json:"runtime"`
	NumberOfEpisodes int         `json:"number_of_episodes"`
	NumberOfSeasons  int         `json:"number_of_seasons"`
	Genres           []tmdbGenre `json:"genres"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	VoteAverage      float64     `json:"vote_average"`
	Credits          struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

type tmdbGenreListResponse struct {
	Genres []tmdbGenre `json:"genres"`
}

// Search 按标题搜索，返回第一个结果
func (s *TMDBService) Search(ctx context.Context, kind model.MediaKind, query string) (*model.CatalogMedia, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if _, err := tmdbMediaPath(kind); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tmdb:search:%s:%s:%s", kind, s.opts.Language, strings.ToLower(query))
	if cached, ok := s.search.Get(ctx, key); ok {
		metrics.CatalogCacheHits.WithLabelValues("search").Inc()
		m := *cached
		return &m, nil
	}

	// 使用 singleflight 避免并发重复请求
	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.searchInternal(ctx, kind, query)
	})
	if err != nil {
		return nil, err
	}
	media := val.(*model.CatalogMedia)
	s.search.Set(ctx, key, media)

	m := *media
	return &m, nil
}

func (s *TMDBService) searchInternal(ctx context.Context, kind model.MediaKind, query string) (*model.CatalogMedia, error) {
	mediaPath, _ := tmdbMediaPath(kind)

	var resp tmdbSearchResponse
	params := url.Values{}
	params.Set("query", query)
	if err := s.get(ctx, "search", "/search/"+mediaPath, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		metrics.CatalogRequests.WithLabelValues("search", "empty").Inc()
		return nil, fmt.Errorf("%w: no results for %q", ErrCatalogNotFound, query)
	}
	hit := resp.Results[0]

	media := &model.CatalogMedia{
		TMDBID:      hit.ID,
		Kind:        kind,
		Title:       firstNonEmpty(hit.Title, hit.Name),
		Description: hit.Overview,
		ReleaseDate: parseDate(firstNonEmpty(hit.ReleaseDate, hit.FirstAirDate)),
		Poster:      s.imageURL("w500", hit.PosterPath),
		Backdrop:    s.imageURL("w1280", hit.BackdropPath),
		Rating:      hit.VoteAverage,
		Genres:      []string{},
		Cast:        []string{},
	}

	// 搜索结果只有类型 ID，需要额外查一次类型列表
	if len(hit.GenreIDs) > 0 {
		genreMap, err := s.Genres(ctx, kind)
		if err != nil {
			s.log.WithError(err).WithField("kind", kind).Warn("[TMDB] 获取类型列表失败，跳过类型解析")
		} else {
			for _, id := range hit.GenreIDs {
				if name, ok := genreMap[id]; ok {
					media.Genres = append(media.Genres, name)
				}
			}
		}
	}

	return media, nil
}

// Details 获取详情（含演职员）
func (s *TMDBService) Details(ctx context.Context, kind model.MediaKind, tmdbID int) (*model.CatalogMedia, error) {
	mediaPath, err := tmdbMediaPath(kind)
	if err != nil {
		return nil, err
	}
	if tmdbID <= 0 {
		return nil, fmt.Errorf("%w: invalid tmdb id %d", ErrInvalidInput, tmdbID)
	}

	var resp tmdbDetailsResponse
	params := url.Values{}
	params.Set("append_to_response", "credits")
	if err := s.get(ctx, "details", "/"+mediaPath+"/"+strconv.Itoa(tmdbID), params, &resp); err != nil {
		return nil, err
	}

	media := &model.CatalogMedia{
		TMDBID:      resp.ID,
		Kind:        kind,
		Title:       firstNonEmpty(resp.Title, resp.Name),
		Description: resp.Overview,
		ReleaseDate: parseDate(firstNonEmpty(resp.ReleaseDate, resp.FirstAirDate)),
		Poster:      s.imageURL("w500", resp.PosterPath),
		Backdrop:    s.imageURL("w1280", resp.BackdropPath),
		Rating:      resp.VoteAverage,
		Genres:      make([]string, 0, len(resp.Genres)),
		Cast:        []string{},
	}
	if media.TMDBID == 0 {
		media.TMDBID = tmdbID
	}
	for _, g := range resp.Genres {
		media.Genres = append(media.Genres, g.Name)
	}
	for i, actor := range resp.Credits.Cast {
		if i >= castLimit {
			break
		}
		media.Cast = append(media.Cast, actor.Name)
	}

	switch kind {
	case model.KindMovie:
		media.Runtime = resp.Runtime
		for _, member := range resp.Credits.Crew {
			if member.Job == "Director" {
				media.Director = member.Name
				break
			}
		}
	case model.KindSeries:
		media.EndDate = parseDate(resp.LastAirDate)
		media.Episodes = resp.NumberOfEpisodes
		media.Seasons = resp.NumberOfSeasons
	}

	return media, nil
}

// Genres 获取类型 ID -> 名称映射（缓存 24 小时）
func (s *TMDBService) Genres(ctx context.Context, kind model.MediaKind) (map[int]string, error) {
	mediaPath, err := tmdbMediaPath(kind)
	if err != nil {
		return nil, err
	}
	key := "genres:" + mediaPath + ":" + s.opts.Language
	if v, ok := s.genres.Get(key); ok {
		metrics.CatalogCacheHits.WithLabelValues("genres").Inc()
		return v.(map[int]string), nil
	}

	var resp tmdbGenreListResponse
	if err := s.get(ctx, "genres", "/genre/"+mediaPath+"/list", nil, &resp); err != nil {
		return nil, err
	}
	genreMap := make(map[int]string, len(resp.Genres))
	for _, g := range resp.Genres {
		genreMap[g.ID] = g.Name
	}
	s.genres.Set(key, genreMap, cache.DefaultExpiration)
	return genreMap, nil
}

func (s *TMDBService) imageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return s.opts.ImageBaseURL + "/" + size + path
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
