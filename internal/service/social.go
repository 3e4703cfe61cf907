package service

import (
	"context"
	"errors"
	"strings"

	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/repository"
	"gorm.io/gorm"
)

const userSearchLimit = 20

// SocialService 关注关系、用户搜索与动态流
type SocialService struct {
	repos *repository.Repositories
}

func NewSocialService(repos *repository.Repositories) *SocialService {
	return &SocialService{repos: repos}
}

// SearchUsers 按用户名模糊搜索，只返回 id 与用户名
func (s *SocialService) SearchUsers(ctx context.Context, pattern string) ([]model.UserSummary, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, ErrInvalidInput
	}
	users, err := s.repos.User.SearchByName(ctx, pattern, userSearchLimit)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.UserSummary{}
	}
	return users, nil
}

func requireUsers(ctx context.Context, tx *repository.Repositories, ids ...uint) error {
	for _, id := range ids {
		u, err := tx.User.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrNotFound
		}
	}
	return nil
}

// Follow 关注用户
func (s *SocialService) Follow(ctx context.Context, actor, target uint) error {
	if actor == target {
		return ErrSelfFollow
	}
	err := s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		if err := requireUsers(ctx, tx, actor, target); err != nil {
			return err
		}
		following, err := tx.Follow.IsFollowing(ctx, actor, target)
		if err != nil {
			return err
		}
		if following {
			return ErrAlreadyFollowing
		}
		return tx.Follow.Add(ctx, actor, target)
	})
	// 并发关注由唯一索引兜底
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyFollowing
	}
	if err == nil {
		logger.Get().WithField("follower", actor).WithField("followed", target).Info("[Social] 新增关注")
	}
	return err
}

// Unfollow 取消关注
func (s *SocialService) Unfollow(ctx context.Context, actor, target uint) error {
	return s.repos.InTx(ctx, func(tx *repository.Repositories) error {
		if err := requireUsers(ctx, tx, actor, target); err != nil {
			return err
		}
		n, err := tx.Follow.Remove(ctx, actor, target)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFollowing
		}
		return nil
	})
}

// FeedFor 关注的人最近有短评或已收藏/已看的电影与剧集
func (s *SocialService) FeedFor(ctx context.Context, userID uint) ([]model.MediaItem, error) {
	ids, err := s.repos.Follow.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.MediaItem{}, nil
	}
	movies, err := s.repos.Movie.ListActivityByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	series, err := s.repos.Series.ListActivityByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := append(toItems(movies), toItems(series)...)
	sortItems(items, func(it model.MediaItem) int64 { return it.UpdatedAt.UnixNano() })
	if err := attachOwners(ctx, s.repos.User, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Profile 用户主页
func (s *SocialService) Profile(ctx context.Context, userID uint) (*model.Profile, error) {
	u, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	followerIDs, err := s.repos.Follow.FollowerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	followingIDs, err := s.repos.Follow.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := s.summaries(ctx, followerIDs)
	if err != nil {
		return nil, err
	}
	following, err := s.summaries(ctx, followingIDs)
	if err != nil {
		return nil, err
	}
	movies, err := s.repos.Movie.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	series, err := s.repos.Series.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.Profile{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		Followers: followers,
		Following: following,
		Movies:    movies,
		Series:    series,
	}, nil
}

// summaries 保持 ids 的顺序，跳过已不存在的用户
func (s *SocialService) summaries(ctx context.Context, ids []uint) ([]model.UserSummary, error) {
	byID, err := s.repos.User.FindSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := byID[id]; ok {
			out = append(out, sum)
		}
	}
	return out, nil
}
