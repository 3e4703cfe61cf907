package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/user/moovie-social/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, email, username, password string) (*model.User, error) {
	// 密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		Role:         "user",
		CreatedAt:    time.Now(),
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// FindByEmail 根据邮箱查找用户
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByID 根据 ID 查找用户
func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// CheckPassword 验证密码
func (r *UserRepository) CheckPassword(user *model.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

// SearchByName 按用户名不区分大小写模糊搜索
func (r *UserRepository) SearchByName(ctx context.Context, pattern string, limit int) ([]model.UserSummary, error) {
	var users []model.UserSummary
	like := "%" + escapeLike(strings.ToLower(pattern)) + "%"
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Select("id", "username").
		Where("LOWER(username) LIKE ? ESCAPE '\\'", like).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// FindSummaries 批量查询用户名，返回 id -> 投影
func (r *UserRepository) FindSummaries(ctx context.Context, ids []uint) (map[uint]model.UserSummary, error) {
	res := make(map[uint]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return res, nil
	}
	var users []model.UserSummary
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Select("id", "username").
		Where("id IN ?", ids).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		res[u.ID] = u
	}
	return res, nil
}

// escapeLike 转义 LIKE 通配符
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
