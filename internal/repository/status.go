package repository

import (
	"context"
	"errors"

	"github.com/user/moovie-social/internal/model"
	"gorm.io/gorm"
)

type StatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) *StatusRepository {
	return &StatusRepository{db: db}
}

// subjectScope 按 movie/series 引用过滤，未设置的一侧必须为空
func subjectScope(s model.Subject, withPost bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = refScope(db, "movie_id", s.Movie)
		db = refScope(db, "series_id", s.Series)
		if withPost {
			db = refScope(db, "post_id", s.Post)
		}
		return db
	}
}

func refScope(db *gorm.DB, column string, ref *uint) *gorm.DB {
	if ref != nil && *ref != 0 {
		return db.Where(column+" = ?", *ref)
	}
	return db.Where(column + " IS NULL")
}

// Create 新增状态
func (r *StatusRepository) Create(ctx context.Context, s *model.Status) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Insert 新增状态；违反 (用户, 对象) 唯一索引时返回 false
// 在保存点中执行，冲突不会中止外层事务
func (r *StatusRepository) Insert(ctx context.Context, s *model.Status) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(s).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindByID 根据 ID 查找，不存在返回 nil
func (r *StatusRepository) FindByID(ctx context.Context, id uint) (*model.Status, error) {
	var s model.Status
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByUserAndSubject 根据 (用户, 对象) 查找
func (r *StatusRepository) FindByUserAndSubject(ctx context.Context, userID uint, subject model.Subject) (*model.Status, error) {
	var s model.Status
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Scopes(subjectScope(subject, false)).
		Order("id ASC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountByUserAndSubject 统计 (用户, 对象) 的行数
func (r *StatusRepository) CountByUserAndSubject(ctx context.Context, userID uint, subject model.Subject) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Status{}).
		Where("user_id = ?", userID).
		Scopes(subjectScope(subject, false)).
		Count(&count).Error
	return count, err
}

// ListByUser 获取用户的全部状态
func (r *StatusRepository) ListByUser(ctx context.Context, userID uint) ([]*model.Status, error) {
	var list []*model.Status
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}

// UpdateStatus 覆盖状态值
func (r *StatusRepository) UpdateStatus(ctx context.Context, id uint, status model.MediaStatus) error {
	return r.db.WithContext(ctx).Model(&model.Status{}).Where("id = ?", id).Update("status", status).Error
}

// Delete 删除状态
func (r *StatusRepository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&model.Status{}, id)
	return res.RowsAffected, res.Error
}

// DeleteByMovie 删除引用某电影的全部状态
func (r *StatusRepository) DeleteByMovie(ctx context.Context, movieID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("movie_id = ?", movieID).Delete(&model.Status{})
	return res.RowsAffected, res.Error
}

// DeleteBySeries 删除引用某剧集的全部状态
func (r *StatusRepository) DeleteBySeries(ctx context.Context, seriesID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("series_id = ?", seriesID).Delete(&model.Status{})
	return res.RowsAffected, res.Error
}

// DeleteOrphans 清理指向已删除电影/剧集的状态
func (r *StatusRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(movie_id IS NOT NULL AND movie_id NOT IN (?)) OR (series_id IS NOT NULL AND series_id NOT IN (?))",
			r.db.Model(&model.Movie{}).Select("id"),
			r.db.Model(&model.Series{}).Select("id")).
		Delete(&model.Status{})
	return res.RowsAffected, res.Error
}
