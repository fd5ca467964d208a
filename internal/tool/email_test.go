package tool

import (
	"context"
	"net/smtp"
	"os"
	"strings"
	"testing"
)

func TestEmailTool_DraftWritesFile(t *testing.T) {
	dir := t.TempDir()
	em := NewEmailTool(fakeSecrets{}, dir, "smtp.example.com", 587)

	out, err := em.Invoke(context.Background(), "draft", map[string]any{
		"subject": "Launch day",
		"body":    "We are live.",
	})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}

	path, _ := out["path"].(string)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read draft: %v", err)
	}
	if !strings.Contains(string(data), "Subject: Launch day") {
		t.Errorf("draft missing subject: %q", data)
	}
	if !strings.Contains(string(data), "We are live.") {
		t.Errorf("draft missing body: %q", data)
	}
}

func TestEmailTool_SendCampaign(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	em := NewEmailTool(fakeSecrets{
		"smtp_username": "founder@example.com",
		"smtp_password": "hunter2",
	}, t.TempDir(), "smtp.example.com", 587)
	em.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	out, err := em.Invoke(context.Background(), "send_campaign", map[string]any{
		"subject":    "Welcome",
		"body":       "Thanks for signing up.",
		"recipients": []any{"a@example.com", "b@example.com"},
	})
	if err != nil {
		t.Fatalf("send_campaign failed: %v", err)
	}
	if out["sent"] != 2 {
		t.Errorf("sent = %v", out["sent"])
	}
	if gotAddr != "smtp.example.com:587" {
		t.Errorf("addr = %q", gotAddr)
	}
	if gotFrom != "founder@example.com" {
		t.Errorf("from = %q", gotFrom)
	}
	if len(gotTo) != 2 {
		t.Errorf("to = %v", gotTo)
	}
	if !strings.Contains(string(gotMsg), "Subject: Welcome") {
		t.Errorf("message missing subject: %q", gotMsg)
	}
}

func TestEmailTool_SendWithoutRecipients(t *testing.T) {
	em := NewEmailTool(fakeSecrets{}, t.TempDir(), "smtp.example.com", 587)

	_, err := em.Invoke(context.Background(), "send_campaign", map[string]any{"subject": "x"})
	if err == nil || !strings.Contains(err.Error(), "no recipients") {
		t.Fatalf("expected no recipients error, got %v", err)
	}
}

func TestEmailTool_SendWithoutCredentials(t *testing.T) {
	em := NewEmailTool(fakeSecrets{}, t.TempDir(), "smtp.example.com", 587)

	_, err := em.Invoke(context.Background(), "send_campaign", map[string]any{
		"recipients": []any{"a@example.com"},
	})
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}
