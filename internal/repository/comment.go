package repository

import (
	"context"
	"errors"

	"github.com/user/moovie-social/internal/model"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 新增评论
func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// FindByID 根据 ID 查找，不存在返回 nil
func (r *CommentRepository) FindByID(ctx context.Context, id uint) (*model.Comment, error) {
	var c model.Comment
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListBySubject 按插入顺序获取某对象的评论
func (r *CommentRepository) ListBySubject(ctx context.Context, subject model.Subject) ([]*model.Comment, error) {
	var list []*model.Comment
	err := r.db.WithContext(ctx).
		Scopes(subjectScope(subject, true)).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// UpdateContent 更新评论内容
func (r *CommentRepository) UpdateContent(ctx context.Context, id uint, content string) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("content", content).Error
}

// Delete 删除评论
func (r *CommentRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.Comment{}, id)
	return res.RowsAffected, res.Error
}

// DeleteByMovie 删除某电影下的全部评论
func (r *CommentRepository) DeleteByMovie(ctx context.Context, movieID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("movie_id = ?", movieID).Delete(&model.Comment{})
	return res.RowsAffected, res.Error
}

// DeleteBySeries 删除某剧集下的全部评论
func (r *CommentRepository) DeleteBySeries(ctx context.Context, seriesID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("series_id = ?", seriesID).Delete(&model.Comment{})
	return res.RowsAffected, res.Error
}

// CountBySubject 统计某对象的评论数
func (r *CommentRepository) CountBySubject(ctx context.Context, subject model.Subject) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Comment{}).
		Scopes(subjectScope(subject, true)).
		Count(&count).Error
	return count, err
}

// DeleteOrphans 清理指向已删除电影/剧集的评论
func (r *CommentRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(movie_id IS NOT NULL AND movie_id NOT IN (?)) OR (series_id IS NOT NULL AND series_id NOT IN (?))",
			r.db.Model(&model.Movie{}).Select("id"),
			r.db.Model(&model.Series{}).Select("id")).
		Delete(&model.Comment{})
	return res.RowsAffected, res.Error
}
