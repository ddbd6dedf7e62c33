package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/smallbiznis/fnol/internal/config"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	"github.com/smallbiznis/fnol/internal/observability/metrics"
	"go.uber.org/zap"
)

const userAgent = "fnol-webhook/1.0"

// Webhook posts signed JSON events to a configured endpoint. Each event is
// dispatched on its own goroutine with bounded exponential backoff, detached
// from the caller's request lifetime.
type Webhook struct {
	log     *zap.Logger
	client  *http.Client
	cfg     config.WebhookConfig
	metrics *metrics.Metrics

	stop   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWebhook(cfg config.WebhookConfig, log *zap.Logger, m *metrics.Metrics) *Webhook {
	stop, cancel := context.WithCancel(context.Background())
	return &Webhook{
		log:     log.Named("notifier.webhook"),
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		metrics: m,
		stop:    stop,
		cancel:  cancel,
	}
}

// Close interrupts retry backoff, cancels in-flight requests and waits for
// delivery goroutines to return.
func (w *Webhook) Close() {
	w.cancel()
	w.wg.Wait()
}

type eventPayload struct {
	EventType          string `json:"eventType"`
	Timestamp          string `json:"timestamp"`
	FnolID             string `json:"fnolId"`
	Country            string `json:"country"`
	Status             string `json:"status"`
	SeverityLevel      string `json:"severityLevel"`
	Route              string `json:"route"`
	ProcessInstanceKey string `json:"processInstanceKey"`
}

func (w *Webhook) CaseCreated(ctx context.Context, record fnoldomain.Case) {
	w.dispatch(record, "FNOL_CREATED")
}

func (w *Webhook) CaseUpdated(ctx context.Context, record fnoldomain.Case) {
	w.dispatch(record, "FNOL_UPDATED")
}

func (w *Webhook) dispatch(record fnoldomain.Case, eventType string) {
	payload := eventPayload{
		EventType:          eventType,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		FnolID:             record.CaseID,
		Country:            record.Jurisdiction,
		Status:             record.Status,
		SeverityLevel:      string(record.SeverityLevel),
		Route:              string(record.Route),
		ProcessInstanceKey: record.WorkflowHandle,
	}

	w.wg.Add(1)
	go w.deliver(payload)
}

func (w *Webhook) deliver(payload eventPayload) {
	defer w.wg.Done()

	body, err := json.Marshal(payload)
	if err != nil {
		w.log.Error("webhook payload encode failed",
			zap.String("case_id", payload.FnolID),
			zap.Error(err),
		)
		return
	}

	for attempt := 0; attempt <= w.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-w.stop.Done():
				w.log.Warn("webhook delivery abandoned on shutdown",
					zap.String("case_id", payload.FnolID),
					zap.String("event_type", payload.EventType),
				)
				return
			case <-time.After(time.Duration(math.Pow(2, float64(attempt))) * time.Second):
			}
		}

		if w.send(body) {
			w.metrics.RecordWebhookDelivery(context.Background(), "delivered")
			return
		}
		w.log.Warn("webhook attempt failed",
			zap.String("case_id", payload.FnolID),
			zap.Int("attempt", attempt+1),
		)
	}

	w.metrics.RecordWebhookDelivery(context.Background(), "failed")
	w.log.Error("webhook delivery exhausted retries",
		zap.String("case_id", payload.FnolID),
		zap.String("event_type", payload.EventType),
	)
}

func (w *Webhook) send(body []byte) bool {
	req, err := http.NewRequestWithContext(w.stop, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if w.cfg.Secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(body, w.cfg.Secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Sign computes the HMAC-SHA256 payload signature in the sha256=<hex> form
// receivers verify against.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
