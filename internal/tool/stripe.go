package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gnoscenti/founder-autopilot/internal/vault"
)

// stripeAPIBase is the Stripe REST endpoint. Overridable in tests.
var stripeAPIBase = "https://api.stripe.com/v1"

// StripeTool creates payment-provider resources. Every creating operation is
// flagged dangerous: each one changes live billing state.
type StripeTool struct {
	secrets vault.Secrets
	client  *http.Client
}

// NewStripeTool creates a stripe tool reading its API key from the vault.
func NewStripeTool(secrets vault.Secrets) *StripeTool {
	return &StripeTool{
		secrets: secrets,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns "stripe".
func (t *StripeTool) Name() string { return "stripe" }

// Operations returns the supported stripe operations.
func (t *StripeTool) Operations() []Operation {
	return []Operation{
		{Name: "create_product", Dangerous: true},
		{Name: "create_price", Dangerous: true},
		{Name: "create_webhook", Dangerous: true},
	}
}

// Invoke performs one stripe operation. A missing API key fails permanently
// before any request is made.
func (t *StripeTool) Invoke(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	if !hasOperation(t.Operations(), operation) {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: ErrUnknownOperation}
	}

	apiKey, err := t.secrets.Get("stripe_api_key")
	if err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation,
			Err: errors.New("stripe API key not configured")}
	}

	var path string
	form := url.Values{}
	switch operation {
	case "create_product":
		path = "/products"
		form.Set("name", stringParam(params, "name"))
		if desc := stringParam(params, "description"); desc != "" {
			form.Set("description", desc)
		}
	case "create_price":
		path = "/prices"
		form.Set("product", stringParam(params, "product"))
		form.Set("currency", stringParam(params, "currency"))
		form.Set("unit_amount", stringParam(params, "unit_amount"))
	case "create_webhook":
		path = "/webhook_endpoints"
		form.Set("url", stringParam(params, "url"))
		form.Set("enabled_events[]", stringParam(params, "event"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, stripeAPIBase+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// Network failures and timeouts are worth retrying.
		return nil, &Error{Tool: t.Name(), Operation: operation, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &Error{Tool: t.Name(), Operation: operation, Err: fmt.Errorf("decode response: %w", err)}
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Tool: t.Name(), Operation: operation, Transient: true,
			Err: fmt.Errorf("stripe returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{Tool: t.Name(), Operation: operation,
			Err: fmt.Errorf("stripe returned %d: %v", resp.StatusCode, body["error"])}
	}
	return body, nil
}

func stringParam(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

var _ Tool = (*StripeTool)(nil)
