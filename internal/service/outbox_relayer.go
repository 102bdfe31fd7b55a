package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"github.com/sirupsen/logrus"
)

// Sender 投递一条 outbox 事件
type Sender func(ctx context.Context, ob *model.NotificationOutbox) error

// OutboxRelayer 定时把通知 outbox 表投递出去
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(repo *mysql.OutboxRepository, interval time.Duration, sender Sender) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	if sender == nil {
		sender = LogSender
	}
	return &OutboxRelayer{
		repo:      repo,
		batchSize: 200,
		maxRetry:  5,
		interval:  interval,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 投递一批，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		pkg.LogError(err, "outbox query failed")
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			pkg.Logger.WithFields(logrus.Fields{
				"outbox_id": ob.ID,
				"retry":     ob.Retry + 1,
				"error":     err.Error(),
			}).Warn("outbox send failed")
			if err := r.repo.RetryUpdate(ctx, ob.ID, ob.Delivered); err != nil {
				pkg.LogError(err, "outbox retry update failed")
			}
			continue
		}
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			pkg.LogError(err, "outbox success update failed")
			continue
		}
		sent++
	}
	return sent
}

// LogSender 默认 sender：只打日志
func LogSender(ctx context.Context, ob *model.NotificationOutbox) error {
	pkg.Logger.WithFields(logrus.Fields{
		"source":     "outbox",
		"event_type": ob.EventType,
		"recipient":  ob.RecipientID,
		"payload":    string(ob.Payload),
	}).Info("outbox send")
	return nil
}

// KafkaSender 以接收者 id 为 key 写入 topic，同一用户的通知保持顺序。
// 至少一次投递：消费方按 notification_id header 去重
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		return p.Send(ctx, pkg.MakeKeyFromID(ob.RecipientID), ob.Payload, map[string]string{
			"event_type":      ob.EventType,
			"notification_id": pkg.MakeKeyFromID(ob.NotificationID),
		})
	}
}

type outboxPayload struct {
	Recipient uint64 `json:"recipient"`
	Actor     uint64 `json:"actor"`
	Verb      string `json:"verb"`
}

// MailSender 给接收者发邮件提醒
func MailSender(m *pkg.Mailer, users *mysql.UserRepository) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		var p outboxPayload
		if err := json.Unmarshal(ob.Payload, &p); err != nil {
			return err
		}
		byID, err := users.FindByIDs(ctx, []uint64{p.Recipient, p.Actor})
		if err != nil {
			return err
		}
		recipient, ok := byID[p.Recipient]
		if !ok || recipient.Email == "" {
			// 收件人不存在，没有可重试的意义
			return nil
		}
		actor := byID[p.Actor].Username
		return m.Send(recipient.Email, actor+" "+p.Verb, pkg.NotificationHTML(recipient.Username, actor, p.Verb))
	}
}

// Channel 带名字的 sender，名字记在 outbox.Delivered 里
type Channel struct {
	Name string
	Send Sender
}

// MultiSender 依次投递各通道，重试时跳过已经成功的通道
func MultiSender(channels ...Channel) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		var errs []error
		for _, c := range channels {
			if ob.HasDelivered(c.Name) {
				continue
			}
			if err := c.Send(ctx, ob); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
				continue
			}
			ob.MarkDelivered(c.Name)
		}
		return errors.Join(errs...)
	}
}
