package model

import (
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type TargetKind string

const (
	TargetUser    TargetKind = "user"
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
)

// Target 通知指向的对象，按 kind 分别查找
type Target struct {
	Kind TargetKind
	ID   uint64
}

func UserTarget(id uint64) Target    { return Target{Kind: TargetUser, ID: id} }
func PostTarget(id uint64) Target    { return Target{Kind: TargetPost, ID: id} }
func CommentTarget(id uint64) Target { return Target{Kind: TargetComment, ID: id} }

func (k TargetKind) Valid() bool {
	switch k {
	case TargetUser, TargetPost, TargetComment:
		return true
	}
	return false
}

const (
	VerbFollowed  = "started following you"
	VerbLiked     = "liked your post"
	VerbCommented = "commented on your post"
)

type Notification struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	RecipientID uint64     `gorm:"not null;index:idx_recipient_read,priority:1" json:"recipient_id"`
	ActorID     uint64     `gorm:"not null;index" json:"actor"`
	Verb        string     `gorm:"size:255;not null" json:"verb"`
	TargetKind  TargetKind `gorm:"size:16;not null" json:"target_type"`
	TargetID    uint64     `gorm:"not null" json:"object_id"`
	IsRead      bool       `gorm:"not null;default:false;index:idx_recipient_read,priority:2" json:"is_read"`
	CreatedAt   time.Time  `json:"timestamp"`
}

func (n Notification) Target() Target {
	return Target{Kind: n.TargetKind, ID: n.TargetID}
}

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// NotificationOutbox 通知投递事件表，和通知在同一事务写入
type NotificationOutbox struct {
	ID             uint64         `gorm:"primaryKey"`
	NotificationID uint64         `gorm:"not null;index"`
	RecipientID    uint64         `gorm:"not null"`
	EventType      string         `gorm:"size:16;not null;comment:'target kind, verb is in payload'"`
	Payload        datatypes.JSON `gorm:"not null"`
	Status         int8           `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry          int            `gorm:"not null;default:0"`
	Delivered      string         `gorm:"size:255;not null;default:'';comment:'channels already sent, comma separated'"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (o *NotificationOutbox) HasDelivered(channel string) bool {
	return o.Delivered != "" && slices.Contains(strings.Split(o.Delivered, ","), channel)
}

// MarkDelivered 记录已成功投递的通道，重试时跳过
func (o *NotificationOutbox) MarkDelivered(channel string) {
	if o.HasDelivered(channel) {
		return
	}
	if o.Delivered == "" {
		o.Delivered = channel
		return
	}
	o.Delivered += "," + channel
}

func (NotificationOutbox) TableName() string { return "notification_outbox" }

func (n Notification) OwnerID() uint64 { return n.RecipientID }

func (Notification) Private() bool { return true }
