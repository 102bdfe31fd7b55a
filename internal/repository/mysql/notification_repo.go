package mysql

import (
	"context"
	"encoding/json"
	"time"

	"Lee_Social/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

type OutboxRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

// Create 写通知，同一事务写 outbox 事件
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		return r.insertOutbox(tx, n)
	})
}

func (r *NotificationRepository) insertOutbox(tx *gorm.DB, n *model.Notification) error {
	payload, err := json.Marshal(map[string]any{
		"event_time":      time.Now().UTC().Format(time.RFC3339Nano),
		"notification_id": n.ID,
		"recipient":       n.RecipientID,
		"actor":           n.ActorID,
		"verb":            n.Verb,
		"target_type":     n.TargetKind,
		"object_id":       n.TargetID,
	})
	if err != nil {
		return err
	}
	ob := &model.NotificationOutbox{
		NotificationID: n.ID,
		RecipientID:    n.RecipientID,
		EventType:      string(n.TargetKind),
		Payload:        datatypes.JSON(payload),
		Status:         model.OutboxPending,
	}
	return tx.Create(ob).Error
}

// ListBefore 按 id 倒序取一批，beforeID=0 表示从最新开始。id 自增，等价于按时间倒序
func (r *NotificationRepository) ListBefore(ctx context.Context, recipientID, beforeID uint64, limit int) ([]model.Notification, error) {
	q := r.DB.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var list []model.Notification
	err := q.Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *NotificationRepository) Page(ctx context.Context, recipientID uint64, offset, limit int) ([]model.Notification, int64, error) {
	q := r.DB.WithContext(ctx).Model(&model.Notification{}).Where("recipient_id = ?", recipientID)
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Notification
	err := q.Order("id DESC").Offset(offset).Limit(limit).Find(&list).Error
	return list, total, err
}

// FindForRecipient 只能查到发给自己的通知
func (r *NotificationRepository) FindForRecipient(ctx context.Context, id, recipientID uint64) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error
	return &n, err
}

// MarkAllRead 返回本次更新的条数
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

// List 待投递事件：pending 以及未超过重试上限的 failed
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.NotificationOutbox, error) {
	var list []model.NotificationOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ? OR (status = ? AND retry < ?)", model.OutboxPending, model.OutboxFailed, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate 投递失败，记录重试次数和已经成功的通道
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64, delivered string) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1"), "delivered": delivered}).Error
}

// SuccessUpdate 投递成功
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}
