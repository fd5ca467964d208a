package tool

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gnoscenti/founder-autopilot/internal/vault"
)

// EmailTool drafts and sends email via SMTP. Sending a campaign touches real
// recipients and is flagged dangerous; drafting only writes to the workspace.
type EmailTool struct {
	secrets  vault.Secrets
	draftDir string
	host     string
	port     int
	// send allows tests to stub the SMTP round trip.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailTool creates an email tool. Drafts are written under draftDir.
func NewEmailTool(secrets vault.Secrets, draftDir, host string, port int) *EmailTool {
	return &EmailTool{
		secrets:  secrets,
		draftDir: draftDir,
		host:     host,
		port:     port,
		send:     smtp.SendMail,
	}
}

// Name returns "email".
func (t *EmailTool) Name() string { return "email" }

// ForWorkspace returns a copy of the tool drafting into the given run
// workspace.
func (t *EmailTool) ForWorkspace(dir string) Tool {
	clone := *t
	clone.draftDir = filepath.Join(dir, "email_drafts")
	return &clone
}

// Operations returns the supported email operations.
func (t *EmailTool) Operations() []Operation {
	return []Operation{
		{Name: "draft"},
		{Name: "send_campaign", Dangerous: true},
	}
}

// Invoke performs one email operation.
func (t *EmailTool) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
	}

	subject, _ := params["subject"].(string)
	body, _ := params["body"].(string)

	switch operation {
	case "draft":
		name := fmt.Sprintf("draft_%d.eml", time.Now().UnixNano())
		path := filepath.Join(t.draftDir, name)
		content := fmt.Sprintf("Subject: %s\n\n%s\n", subject, body)
		if err := os.MkdirAll(t.draftDir, 0755); err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
		}
		return map[string]any{"path": path}, nil

	case "send_campaign":
		recipients := stringSlice(params["recipients"])
		if len(recipients) == 0 {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: errors.New("no recipients")}
		}
		username, err := t.secrets.Get("smtp_username")
		if err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: errors.New("smtp credentials not configured")}
		}
		password, err := t.secrets.Get("smtp_password")
		if err != nil {
			return nil, &Error{Tool: t.Name(), Operation: operation, Err: errors.New("smtp credentials not configured")}
		}

		msg := fmt.Sprintf("From: %s\nTo: %s\nSubject: %s\n\n%s\n",
			username, strings.Join(recipients, ", "), subject, body)
		addr := fmt.Sprintf("%s:%d", t.host, t.port)
		auth := smtp.PlainAuth("", username, password, t.host)
		if err := t.send(addr, auth, username, recipients, []byte(msg)); err != nil {
			// SMTP delivery failures are usually transient connectivity issues.
			return nil, &Error{Tool: t.Name(), Operation: operation, Transient: true, Err: err}
		}
		return map[string]any{"sent": len(recipients)}, nil
	}

	return nil, &Error{Tool: t.Name(), Operation: operation, Err: ErrUnknownOperation}
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		var out []string
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

var (
	_ Tool   = (*EmailTool)(nil)
	_ Rooted = (*EmailTool)(nil)
)
