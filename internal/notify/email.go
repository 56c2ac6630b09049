// Package notify delivers generated reports by email.
package notify

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/gomail.v2"

	"github.com/newsbrief-ai/newsbrief/internal/logger"
)

// smtpEndpoint describes one provider's submission endpoint.
type smtpEndpoint struct {
	host string
	port int
	ssl  bool
}

// smtpEndpoints maps sender domains to their SMTP servers so most
// users never have to configure a host by hand.
var smtpEndpoints = map[string]smtpEndpoint{
	"qq.com":      {host: "smtp.qq.com", port: 465, ssl: true},
	"foxmail.com": {host: "smtp.qq.com", port: 465, ssl: true},
	"163.com":     {host: "smtp.163.com", port: 465, ssl: true},
	"126.com":     {host: "smtp.126.com", port: 465, ssl: true},
	"gmail.com":   {host: "smtp.gmail.com", port: 587, ssl: false},
	"outlook.com": {host: "smtp-mail.outlook.com", port: 587, ssl: false},
	"hotmail.com": {host: "smtp-mail.outlook.com", port: 587, ssl: false},
	"live.com":    {host: "smtp-mail.outlook.com", port: 587, ssl: false},
	"sina.com":    {host: "smtp.sina.com", port: 465, ssl: true},
	"sohu.com":    {host: "smtp.sohu.com", port: 465, ssl: true},
	"aliyun.com":  {host: "smtp.aliyun.com", port: 465, ssl: true},
	"139.com":     {host: "smtp.139.com", port: 465, ssl: true},
}

var mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Config holds the sender settings. Host and Port are optional; when
// empty they are auto-detected from the sender address domain.
type Config struct {
	Enabled    bool
	Sender     string
	Password   string
	Recipients []string
	Host       string
	Port       int
	SSL        bool
}

// Emailer sends reports over SMTP.
type Emailer struct {
	cfg Config
}

// NewEmailer creates an Emailer. A disabled or incomplete configuration
// still returns a usable value whose Send is a logged no-op.
func NewEmailer(cfg Config) *Emailer {
	return &Emailer{cfg: cfg}
}

// Configured reports whether sending is possible.
func (e *Emailer) Configured() bool {
	return e.cfg.Enabled && e.cfg.Sender != "" && e.cfg.Password != "" && len(e.cfg.Recipients) > 0
}

// SendReport mails the rendered Markdown report, as both plain text
// and an HTML rendition.
func (e *Emailer) SendReport(date, content string) error {
	if !e.Configured() {
		logger.Get().Warn().Msg("email not configured, skipping send")
		return nil
	}

	endpoint, err := e.endpoint()
	if err != nil {
		return err
	}

	var html bytes.Buffer
	if err := mdRenderer.Convert([]byte(content), &html); err != nil {
		return fmt.Errorf("render email html: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", e.cfg.Sender, "AI 技术日报")
	msg.SetHeader("To", e.cfg.Recipients...)
	msg.SetHeader("Subject", fmt.Sprintf("AI技术日报 - %s", date))
	msg.SetBody("text/plain", content)
	msg.AddAlternative("text/html", html.String())

	dialer := gomail.NewDialer(endpoint.host, endpoint.port, e.cfg.Sender, e.cfg.Password)
	dialer.SSL = endpoint.ssl

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}

	logger.Get().Info().Strs("recipients", e.cfg.Recipients).Msg("report email sent")
	return nil
}

// endpoint resolves the SMTP server: explicit config wins, then the
// known-provider table, then a smtp.{domain}:465 guess.
func (e *Emailer) endpoint() (smtpEndpoint, error) {
	if e.cfg.Host != "" {
		port := e.cfg.Port
		if port == 0 {
			port = 465
		}
		return smtpEndpoint{host: e.cfg.Host, port: port, ssl: e.cfg.SSL || port == 465}, nil
	}

	at := strings.LastIndex(e.cfg.Sender, "@")
	if at < 0 || at == len(e.cfg.Sender)-1 {
		return smtpEndpoint{}, fmt.Errorf("invalid sender address %q", e.cfg.Sender)
	}
	domain := strings.ToLower(e.cfg.Sender[at+1:])

	if ep, ok := smtpEndpoints[domain]; ok {
		return ep, nil
	}

	logger.Get().Warn().Str("domain", domain).Msg("unknown email domain, trying generic smtp host")
	return smtpEndpoint{host: "smtp." + domain, port: 465, ssl: true}, nil
}
