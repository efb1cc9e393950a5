package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"

	html "github.com/gofiber/template/html/v2"
	"github.com/juju/errors"

	"marketadmin/internal/domain"
	applog "marketadmin/internal/log"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Mailer delivers account verification messages.
type Mailer interface {
	SendVerification(ctx context.Context, u *domain.User) error
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Link    string
	HTML    string
}

// Renderer turns users into verification messages using the embedded
// templates.
type Renderer struct {
	AppURL string
	engine *html.Engine
}

func NewRenderer(appURL string) (*Renderer, error) {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, errors.Trace(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Annotate(err, "loading mail templates")
	}
	return &Renderer{AppURL: strings.TrimRight(appURL, "/"), engine: engine}, nil
}

func (r *Renderer) VerificationLink(email string) string {
	return r.AppURL + "/api/verify-email?email=" + url.QueryEscape(email)
}

func (r *Renderer) Verification(u *domain.User) (Message, error) {
	link := r.VerificationLink(u.Email)
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, "verify_email", map[string]any{
		"Name":  u.Name,
		"Email": u.Email,
		"Link":  link,
	}); err != nil {
		return Message{}, errors.Annotate(err, "rendering verification mail")
	}
	return Message{To: u.Email, Subject: "Verify Email Address", Link: link, HTML: buf.String()}, nil
}

// SMTPMailer sends through a plain SMTP relay with optional PLAIN auth.
type SMTPMailer struct {
	Addr     string
	From     string
	Auth     smtp.Auth
	Renderer *Renderer

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host, port, user, pass, from string, r *Renderer) *SMTPMailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPMailer{Addr: host + ":" + port, From: from, Auth: auth, Renderer: r, send: smtp.SendMail}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	msg, err := m.Renderer.Verification(u)
	if err != nil {
		return err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)

	if err := m.send(m.Addr, m.Auth, m.From, []string{msg.To}, []byte(b.String())); err != nil {
		return errors.Annotatef(err, "sending verification mail to %s", msg.To)
	}
	return nil
}

// LogMailer writes the verification link to the log instead of sending
// mail. It is the default when no SMTP relay is configured.
type LogMailer struct {
	Renderer *Renderer
}

func (m *LogMailer) SendVerification(_ context.Context, u *domain.User) error {
	msg, err := m.Renderer.Verification(u)
	if err != nil {
		return err
	}
	applog.Info(nil, "mail.verification", map[string]any{"to": msg.To, "link": msg.Link})
	return nil
}
