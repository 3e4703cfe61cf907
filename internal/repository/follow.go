package repository

import (
	"context"
	"time"

	"github.com/user/moovie-social/internal/model"
	"gorm.io/gorm"
)

type FollowRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Add 新增关注边
func (r *FollowRepository) Add(ctx context.Context, followerID, followedID uint) error {
	return r.db.WithContext(ctx).Create(&model.Follow{
		FollowerID: followerID,
		FollowedID: followedID,
		CreatedAt:  time.Now(),
	}).Error
}

// Remove 删除关注边
func (r *FollowRepository) Remove(ctx context.Context, followerID, followedID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&model.Follow{})
	return res.RowsAffected, res.Error
}

// IsFollowing 检查是否已关注
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

// FollowingIDs 用户关注的人
func (r *FollowRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at ASC").
		Pluck("followed_id", &ids).Error
	return ids, err
}

// FollowerIDs 关注该用户的人
func (r *FollowRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("followed_id = ?", userID).
		Order("created_at ASC").
		Pluck("follower_id", &ids).Error
	return ids, err
}

// DeleteDangling 清理指向不存在用户的关注边
func (r *FollowRepository) DeleteDangling(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id NOT IN (?) OR followed_id NOT IN (?)",
			r.db.Model(&model.User{}).Select("id"),
			r.db.Model(&model.User{}).Select("id")).
		Delete(&model.Follow{})
	return res.RowsAffected, res.Error
}
