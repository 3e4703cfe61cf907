package repository

import (
	"context"
	"errors"

	"github.com/user/moovie-social/internal/model"
	"gorm.io/gorm"
)

// MediaRepository 电影/剧集仓库，T 为 model.Movie 或 model.Series
type MediaRepository[T model.Media, PT model.MediaPtr[T]] struct {
	db *gorm.DB
}

func NewMediaRepository[T model.Media, PT model.MediaPtr[T]](db *gorm.DB) *MediaRepository[T, PT] {
	return &MediaRepository[T, PT]{db: db}
}

// Create 创建记录
func (r *MediaRepository[T, PT]) Create(ctx context.Context, m PT) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindByID 根据 ID 查找，不存在返回 nil
func (r *MediaRepository[T, PT]) FindByID(ctx context.Context, id uint) (PT, error) {
	var m T
	err := r.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return PT(&m), nil
}

// FindByUserAndTMDB 根据 (用户, TMDB ID) 查找
func (r *MediaRepository[T, PT]) FindByUserAndTMDB(ctx context.Context, userID uint, tmdbID int) (PT, error) {
	var m T
	err := r.db.WithContext(ctx).Where("user_id = ? AND tmdb_id = ?", userID, tmdbID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return PT(&m), nil
}

// ListByUser 获取用户的全部记录
func (r *MediaRepository[T, PT]) ListByUser(ctx context.Context, userID uint) ([]PT, error) {
	var records []PT
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// ListAll 获取所有用户的记录
func (r *MediaRepository[T, PT]) ListAll(ctx context.Context) ([]PT, error) {
	var records []PT
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&records).Error
	return records, err
}

// ListCommented 获取带个人短评的记录
func (r *MediaRepository[T, PT]) ListCommented(ctx context.Context) ([]PT, error) {
	var records []PT
	err := r.db.WithContext(ctx).
		Where("comment IS NOT NULL AND comment <> ''").
		Order("updated_at DESC").
		Find(&records).Error
	return records, err
}

// ListActivityByUsers 获取指定用户中有短评或非默认状态的记录
func (r *MediaRepository[T, PT]) ListActivityByUsers(ctx context.Context, userIDs []uint) ([]PT, error) {
	var records []PT
	if len(userIDs) == 0 {
		return records, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Where(r.db.Where("comment <> ''").Or("status IN ?", model.FeedStatuses)).
		Order("updated_at DESC").
		Find(&records).Error
	return records, err
}

// UpdateStatus 更新内联状态
func (r *MediaRepository[T, PT]) UpdateStatus(ctx context.Context, id uint, status model.MediaStatus) error {
	return r.db.WithContext(ctx).Model(PT(new(T))).Where("id = ?", id).Update("status", status).Error
}

// UpdateComment 覆盖个人短评
func (r *MediaRepository[T, PT]) UpdateComment(ctx context.Context, id uint, comment string) error {
	return r.db.WithContext(ctx).Model(PT(new(T))).Where("id = ?", id).Update("comment", comment).Error
}

// Delete 删除记录
func (r *MediaRepository[T, PT]) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(PT(new(T)), id)
	return res.RowsAffected, res.Error
}

// Exists 判断记录是否存在
func (r *MediaRepository[T, PT]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(PT(new(T))).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindByIDs 批量查询
func (r *MediaRepository[T, PT]) FindByIDs(ctx context.Context, ids []uint) ([]PT, error) {
	var records []PT
	if len(ids) == 0 {
		return records, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&records).Error
	return records, err
}

// SaveCatalog 保存从 TMDB 补全的字段，不覆盖状态与短评
func (r *MediaRepository[T, PT]) SaveCatalog(ctx context.Context, m PT) error {
	return r.db.WithContext(ctx).
		Omit("status", "comment", "user_id", "tmdb_id", "created_at").
		Save(m).Error
}
