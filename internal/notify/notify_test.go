package notify

import (
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/finpilot/internal/model"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testNotifier(sent *[]*email.Email, addrs *[]string) *Notifier {
	n := New(Config{
		Host:    "smtp.example.com",
		Port:    587,
		From:    "finpilot@example.com",
		To:      []string{"me@example.com"},
		MinRisk: model.RiskDanger,
	}, quietLogger())
	n.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		*sent = append(*sent, e)
		*addrs = append(*addrs, addr)
		return nil
	}
	return n
}

func decision(level model.RiskLevel, text string) model.Decision {
	return model.Decision{
		ID:         "d1",
		UserID:     "u1",
		RiskLevel:  level,
		Command:    model.Command{Type: model.CommandFreeze, Text: text},
		Warnings:   []model.Warning{{Text: "Card payment due Fri"}},
		NextAction: model.NextAction{Text: "Move $50 to checking"},
		ExpiresAt:  time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
	}
}

func TestDecisionAlert(t *testing.T) {
	var (
		sent  []*email.Email
		addrs []string
	)
	n := testNotifier(&sent, &addrs)

	ok, err := n.DecisionAlert(decision(model.RiskDanger, "Freeze spending until Fri"))
	if err != nil || !ok {
		t.Fatalf("DecisionAlert = %v, %v; want sent", ok, err)
	}
	if len(sent) != 1 || addrs[0] != "smtp.example.com:587" {
		t.Fatalf("sent %d mails to %v", len(sent), addrs)
	}
	e := sent[0]
	if e.Subject != "[finpilot] DANGER: freeze" {
		t.Errorf("Subject = %q", e.Subject)
	}
	body := string(e.Text)
	for _, want := range []string{"Freeze spending until Fri", "Card payment due Fri", "Next: Move $50", "finpilot ack d1"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}

	// Identical decision: no second mail.
	if ok, _ := n.DecisionAlert(decision(model.RiskDanger, "Freeze spending until Fri")); ok {
		t.Error("duplicate alert was sent")
	}
	// Changed instruction: mail again.
	if ok, _ := n.DecisionAlert(decision(model.RiskCritical, "Pay the payday loan now")); !ok {
		t.Error("changed alert was not sent")
	}
	if len(sent) != 2 {
		t.Fatalf("sent = %d, want 2", len(sent))
	}
}

func TestDecisionAlert_BelowThreshold(t *testing.T) {
	var (
		sent  []*email.Email
		addrs []string
	)
	n := testNotifier(&sent, &addrs)
	if ok, err := n.DecisionAlert(decision(model.RiskWarning, "Pay card")); ok || err != nil {
		t.Fatalf("DecisionAlert = %v, %v; want skipped", ok, err)
	}
	if len(sent) != 0 {
		t.Fatalf("sent = %d, want 0", len(sent))
	}
}

func TestDecisionAlert_SendFailureRetries(t *testing.T) {
	var (
		sent  []*email.Email
		addrs []string
	)
	n := testNotifier(&sent, &addrs)
	n.send = func(*email.Email, string, smtp.Auth) error { return errors.New("connection refused") }

	if _, err := n.DecisionAlert(decision(model.RiskDanger, "Freeze")); err == nil {
		t.Fatal("expected send error")
	}
	n.send = func(e *email.Email, _ string, _ smtp.Auth) error {
		sent = append(sent, e)
		return nil
	}
	if ok, err := n.DecisionAlert(decision(model.RiskDanger, "Freeze")); !ok || err != nil {
		t.Fatalf("retry = %v, %v; want sent", ok, err)
	}
}

func TestEnabled(t *testing.T) {
	if New(Config{}, quietLogger()).Enabled() {
		t.Fatal("empty config reported enabled")
	}
	var n *Notifier
	if n.Enabled() {
		t.Fatal("nil notifier reported enabled")
	}
}
