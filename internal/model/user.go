package model

import "time"

type User struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	Email          string    `gorm:"uniqueIndex;size:64;not null" json:"email"`
	FollowerCount  int64     `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int64     `gorm:"not null;default:0" json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Profile 用户资料，和 User 在同一个事务里创建
type Profile struct {
	ID             uint64    `gorm:"primaryKey" json:"-"`
	UserID         uint64    `gorm:"uniqueIndex;not null" json:"user_id"`
	Bio            string    `gorm:"size:500" json:"bio"`
	ProfilePicture string    `gorm:"size:255" json:"profile_picture"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"updated_at"`
}
