package model

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// MediaKind 媒体类型
type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// MediaStatus 用户对媒体的个人状态
type MediaStatus string

const (
	StatusFavorite MediaStatus = "favorite"
	StatusPending  MediaStatus = "pending"
	StatusViewed   MediaStatus = "viewed"
)

// ParseMediaStatus 校验并规范化状态值，"watched" 视为 "viewed" 的别名
func ParseMediaStatus(s string) (MediaStatus, error) {
	switch MediaStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusFavorite:
		return StatusFavorite, nil
	case StatusPending:
		return StatusPending, nil
	case StatusViewed, "watched":
		return StatusViewed, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// FeedStatuses 会出现在动态流中的状态
var FeedStatuses = []MediaStatus{StatusFavorite, StatusViewed}

// MediaRecord 电影与剧集共有的字段
type MediaRecord struct {
	ID          uint                        `json:"id" gorm:"primaryKey"`
	TMDBID      int                         `json:"tmdbId" gorm:"not null;index:,unique,composite:tmdb_user"`
	UserID      uint                        `json:"user" gorm:"not null;index:,unique,composite:tmdb_user"`
	Title       string                      `json:"title" gorm:"not null"`
	Description string                      `json:"description" gorm:"type:text"`
	Genre       datatypes.JSONSlice[string] `json:"genre"`
	Poster      string                      `json:"poster"`
	Backdrop    string                      `json:"backdrop"`
	Rating      float64                     `json:"rating"`
	Cast        datatypes.JSONSlice[string] `json:"cast"`
	Status      MediaStatus                 `json:"status" gorm:"size:16;not null;default:pending;index"`
	Comment     string                      `json:"comment" gorm:"type:text;not null;default:''"`
	Enriched    bool                        `json:"enriched" gorm:"not null;default:false"` // 是否已从 TMDB 补全
	CreatedAt   time.Time                   `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time                   `json:"updatedAt" gorm:"index"`
}

// applyCommon 用目录数据覆盖共有字段（空值不覆盖）
func (r *MediaRecord) applyCommon(c *CatalogMedia) {
	if c.Title != "" {
		r.Title = c.Title
	}
	if c.Description != "" {
		r.Description = c.Description
	}
	if len(c.Genres) > 0 {
		r.Genre = datatypes.JSONSlice[string](c.Genres)
	}
	if c.Poster != "" {
		r.Poster = c.Poster
	}
	if c.Backdrop != "" {
		r.Backdrop = c.Backdrop
	}
	if c.Rating > 0 {
		r.Rating = c.Rating
	}
	if len(c.Cast) > 0 {
		r.Cast = datatypes.JSONSlice[string](c.Cast)
	}
}

// Movie 用户个人电影记录
type Movie struct {
	MediaRecord `gorm:"embedded"`
	ReleaseDate *time.Time `json:"releaseDate"`
	Runtime     int        `json:"runtime"`
	Director    string     `json:"director"`
}

func (Movie) TableName() string { return "movies" }

func (m *Movie) Record() *MediaRecord { return &m.MediaRecord }

func (m *Movie) Kind() MediaKind { return KindMovie }

// ApplyCatalog 合并 TMDB 数据
func (m *Movie) ApplyCatalog(c *CatalogMedia) {
	m.applyCommon(c)
	if c.ReleaseDate != nil {
		m.ReleaseDate = c.ReleaseDate
	}
	if c.Runtime > 0 {
		m.Runtime = c.Runtime
	}
	if c.Director != "" {
		m.Director = c.Director
	}
}

// Series 用户个人剧集记录
type Series struct {
	MediaRecord `gorm:"embedded"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Episodes    int        `json:"episodes"`
	Seasons     int        `json:"seasons"`
}

func (Series) TableName() string { return "series" }

func (s *Series) Record() *MediaRecord { return &s.MediaRecord }

func (s *Series) Kind() MediaKind { return KindSeries }

// ApplyCatalog 合并 TMDB 数据
func (s *Series) ApplyCatalog(c *CatalogMedia) {
	s.applyCommon(c)
	if c.ReleaseDate != nil {
		s.StartDate = c.ReleaseDate
	}
	if c.EndDate != nil {
		s.EndDate = c.EndDate
	}
	if c.Episodes > 0 {
		s.Episodes = c.Episodes
	}
	if c.Seasons > 0 {
		s.Seasons = c.Seasons
	}
}

// Media 电影或剧集
type Media interface {
	Movie | Series
}

// MediaPtr 供泛型仓库与服务访问公共字段
type MediaPtr[T Media] interface {
	*T
	Record() *MediaRecord
	Kind() MediaKind
	ApplyCatalog(c *CatalogMedia)
}

// CatalogMedia 规范化后的 TMDB 条目
type CatalogMedia struct {
	TMDBID      int        `json:"tmdbId"`
	Kind        MediaKind  `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ReleaseDate *time.Time `json:"releaseDate"` // 剧集为首播日期
	EndDate     *time.Time `json:"endDate,omitempty"`
	Genres      []string   `json:"genre"`
	Poster      string     `json:"poster"`
	Backdrop    string     `json:"backdrop"`
	Rating      float64    `json:"rating"`
	Runtime     int        `json:"runtime,omitempty"`
	Cast        []string   `json:"cast"`
	Director    string     `json:"director,omitempty"`
	Episodes    int        `json:"episodes,omitempty"`
	Seasons     int        `json:"seasons,omitempty"`
}

// MediaItem 聚合列表与动态流中的一项
type MediaItem struct {
	Kind      MediaKind   `json:"kind"`
	Owner     UserSummary `json:"owner"`
	Media     any         `json:"media"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	ID        uint        `json:"-"`
}
