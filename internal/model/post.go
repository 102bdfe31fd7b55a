package model

import "time"

const (
	PostNormal  = 0
	PostDeleted = 1
)

type Post struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	AuthorID     uint64    `gorm:"not null;index:idx_author_time,priority:1" json:"author_id"`
	Title        string    `gorm:"size:200;not null" json:"title"`
	Content      string    `gorm:"type:text" json:"content"`
	Status       int       `gorm:"not null;default:0" json:"-"` // 0=normal 1=deleted
	LikeCount    int64     `gorm:"not null;default:0" json:"like_count"`
	CommentCount int64     `gorm:"not null;default:0" json:"comment_count"`
	CreatedAt    time.Time `gorm:"index:idx_author_time,priority:2" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p Post) OwnerID() uint64 { return p.AuthorID }
