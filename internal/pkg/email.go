package pkg

import (
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string // 发件人邮箱
	Password string // 授权码/密码
	From     string // 显示的发件人，可与 Username 相同
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// MailSender 抽出来方便测试
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type Mailer struct {
	cfg    SMTPConfig
	dialer MailSender
}

func NewMailer(cfg SMTPConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &Mailer{cfg: cfg, dialer: d}
}

func NewMailerWithSender(cfg SMTPConfig, s MailSender) *Mailer {
	return &Mailer{cfg: cfg, dialer: s}
}

func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}

func NotificationHTML(recipient, actor, verb string) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p><b>%s</b> %s.</p><p>Open the app to see more.</p>`,
		html.EscapeString(recipient), html.EscapeString(actor), html.EscapeString(verb))
}
