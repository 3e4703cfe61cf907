package model

import (
	"time"
)

// User 用户模型
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"unique;not null"`
	Username     string    `json:"username" gorm:"unique;not null"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserSummary 只暴露用户名的投影
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Summary 转换为公开投影
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

// Follow 关注关系，一行即一条有向边
type Follow struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FollowerID uint      `json:"followerId" gorm:"not null;uniqueIndex:idx_follow_edge"`
	FollowedID uint      `json:"followedId" gorm:"not null;uniqueIndex:idx_follow_edge;index"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Profile 用户主页
type Profile struct {
	ID        uint          `json:"id"`
	Username  string        `json:"username"`
	CreatedAt time.Time     `json:"createdAt"`
	Followers []UserSummary `json:"followers"`
	Following []UserSummary `json:"following"`
	Movies    []*Movie      `json:"movies"`
	Series    []*Series     `json:"series"`
}
