package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/requestid"
)

// WebhookNotifier POSTs a JSON payload to a fixed URL whenever a job fails
// or times out. The client is hardened the same way the engine's job
// executor used to be when jobs themselves were outbound HTTP calls:
// bounded redirects, a floor on TLS version, a connection pool sized for a
// single operator-configured destination.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		logger: logger.With("component", "notify.webhook"),
	}
}

type webhookPayload struct {
	Type      domain.EventType `json:"type"`
	JobName   string           `json:"job_name"`
	RunID     int64            `json:"run_id"`
	Timestamp time.Time        `json:"timestamp"`
	Detail    string           `json:"detail"`
}

func (n *WebhookNotifier) Notify(ctx context.Context, ev domain.EngineEvent) error {
	body, err := json.Marshal(webhookPayload{
		Type:      ev.Type,
		JobName:   ev.JobName,
		RunID:     ev.RunID,
		Timestamp: ev.Timestamp,
		Detail:    ev.Detail,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	reqID := requestid.New()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
