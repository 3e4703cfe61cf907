package model

import (
	"time"
)

// Subject 状态/评论所指向的对象，恰好一个字段非空
type Subject struct {
	Movie  *uint `json:"movie,omitempty" form:"movie"`
	Series *uint `json:"series,omitempty" form:"series"`
	Post   *uint `json:"post,omitempty" form:"post"`
}

// Count 非空引用个数
func (s Subject) Count() int {
	n := 0
	for _, ref := range []*uint{s.Movie, s.Series, s.Post} {
		if ref != nil && *ref != 0 {
			n++
		}
	}
	return n
}

// Normalize 把值为 0 的引用视为未设置
func (s Subject) Normalize() Subject {
	return Subject{Movie: nonZeroRef(s.Movie), Series: nonZeroRef(s.Series), Post: nonZeroRef(s.Post)}
}

func nonZeroRef(ref *uint) *uint {
	if ref == nil || *ref == 0 {
		return nil
	}
	v := *ref
	return &v
}

// MovieSubject 指向电影
func MovieSubject(id uint) Subject { return Subject{Movie: &id} }

// SeriesSubject 指向剧集
func SeriesSubject(id uint) Subject { return Subject{Series: &id} }

// PostSubject 指向帖子
func PostSubject(id uint) Subject { return Subject{Post: &id} }

// Status 用户对某部电影或剧集的状态（台账，权威来源）
type Status struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	UserID    uint        `json:"user" gorm:"not null;index"`
	MovieID   *uint       `json:"movie,omitempty" gorm:"index"`
	SeriesID  *uint       `json:"series,omitempty" gorm:"index"`
	Status    MediaStatus `json:"status" gorm:"size:16;not null;default:pending"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`

	// 关联查询时填充
	MovieRef  *Movie  `json:"movieDetail,omitempty" gorm:"-"`
	SeriesRef *Series `json:"seriesDetail,omitempty" gorm:"-"`
}

// Comment 评论
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	UserID    uint      `json:"user" gorm:"not null;index"`
	MovieID   *uint     `json:"movie,omitempty" gorm:"index"`
	SeriesID  *uint     `json:"series,omitempty" gorm:"index"`
	PostID    *uint     `json:"post,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Author *UserSummary `json:"author,omitempty" gorm:"-"`
}
