package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"casetrack/internal/events"
)

// LogNotifier writes each event to the structured log. It is the default sink
// when no webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, evt events.TransitionEvent) error {
	slog.Info("case transition",
		"case_id", evt.CaseID,
		"action", evt.Action,
		"from", evt.FromStatus,
		"to", evt.ToStatus,
		"actor_id", evt.ActorID,
		"recipients", len(evt.Recipients),
	)
	return nil
}

// WebhookNotifier POSTs each event as JSON to a configured endpoint.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, evt events.TransitionEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
