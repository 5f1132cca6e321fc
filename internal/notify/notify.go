// Package notify emails decision alerts over SMTP.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finpilot/internal/model"
)

// Config holds SMTP and alert settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	MinRisk  model.RiskLevel
}

type sendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Notifier sends one email per distinct alerting decision.
type Notifier struct {
	cfg  Config
	log  logrus.FieldLogger
	send sendFunc

	mu       sync.Mutex
	lastSent map[string]string // user -> fingerprint of last alert
}

// New creates a notifier. It is inert unless host, sender and recipients are set.
func New(cfg Config, log logrus.FieldLogger) *Notifier {
	return &Notifier{
		cfg:      cfg,
		log:      log,
		send:     func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
		lastSent: make(map[string]string),
	}
}

// Enabled reports whether alerts can be delivered.
func (n *Notifier) Enabled() bool {
	return n != nil && n.cfg.Host != "" && n.cfg.From != "" && len(n.cfg.To) > 0
}

// DecisionAlert emails d if it is at or above the configured risk and differs
// from the last alert sent for the same user. It reports whether mail was sent.
func (n *Notifier) DecisionAlert(d model.Decision) (bool, error) {
	if !n.Enabled() || !d.RiskLevel.AtLeast(n.cfg.MinRisk) {
		return false, nil
	}
	fp := d.RiskLevel.String() + "|" + d.Command.Text

	n.mu.Lock()
	if n.lastSent[d.UserID] == fp {
		n.mu.Unlock()
		return false, nil
	}
	n.mu.Unlock()

	e := buildMessage(n.cfg, d)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := n.send(e, addr, auth); err != nil {
		n.log.WithError(err).WithField("user_id", d.UserID).Error("failed to send decision alert")
		return false, fmt.Errorf("notify: sending alert for %s: %w", d.ID, err)
	}

	n.mu.Lock()
	n.lastSent[d.UserID] = fp
	n.mu.Unlock()

	n.log.WithFields(logrus.Fields{
		"user_id":     d.UserID,
		"decision_id": d.ID,
		"risk":        d.RiskLevel.String(),
	}).Info("decision alert sent")
	return true, nil
}

func buildMessage(cfg Config, d model.Decision) *email.Email {
	e := email.NewEmail()
	e.From = cfg.From
	e.To = append([]string(nil), cfg.To...)
	e.Subject = fmt.Sprintf("[finpilot] %s: %s", strings.ToUpper(d.RiskLevel.String()), d.Command.Type)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", d.Command.Text)
	if len(d.Warnings) > 0 {
		b.WriteString("Also watch:\n")
		for _, w := range d.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w.Text)
		}
		b.WriteString("\n")
	}
	if d.NextAction.Text != "" {
		fmt.Fprintf(&b, "Next: %s\n\n", d.NextAction.Text)
	}
	fmt.Fprintf(&b, "Valid until %s. Run `finpilot ack %s` once you have acted.\n",
		d.ExpiresAt.Local().Format("Mon Jan 2 15:04"), d.ID)
	e.Text = []byte(b.String())
	return e
}
