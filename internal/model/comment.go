package model

import "time"

type Comment struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	PostID    uint64    `gorm:"not null;index:idx_post_time,priority:1" json:"post_id"`
	AuthorID  uint64    `gorm:"not null;index" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_post_time,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Comment) OwnerID() uint64 { return c.AuthorID }
