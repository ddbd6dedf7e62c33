package notifier

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/fnol/internal/config"
	fnoldomain "github.com/smallbiznis/fnol/internal/fnol/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWebhook_DeliversSignedEvent(t *testing.T) {
	received := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- r
		bodies <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := NewWebhook(config.WebhookConfig{
		Enabled:    true,
		URL:        server.URL,
		Secret:     "topsecret",
		Timeout:    2 * time.Second,
		RetryCount: 1,
	}, zap.NewNop(), nil)

	webhook.CaseCreated(context.Background(), fnoldomain.Case{
		CaseID:         "FNOL-AE-2026-000001",
		Jurisdiction:   "AE",
		Status:         fnoldomain.CaseStatusSubmitted,
		SeverityLevel:  fnoldomain.SeverityLow,
		Route:          fnoldomain.RouteFastTrack,
		WorkflowHandle: "DEMO-1",
	})

	select {
	case req := <-received:
		body := <-bodies

		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, userAgent, req.Header.Get("User-Agent"))

		signature := req.Header.Get("X-Webhook-Signature")
		assert.True(t, hmac.Equal([]byte(signature), []byte(Sign(body, "topsecret"))))

		var payload eventPayload
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "FNOL_CREATED", payload.EventType)
		assert.Equal(t, "FNOL-AE-2026-000001", payload.FnolID)
		assert.Equal(t, "AE", payload.Country)
		assert.Equal(t, "LOW", payload.SeverityLevel)
		assert.Equal(t, "FAST_TRACK", payload.Route)
		assert.Equal(t, "DEMO-1", payload.ProcessInstanceKey)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	attempts := make(chan int, 4)
	count := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		attempts <- count
		if count == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := NewWebhook(config.WebhookConfig{
		Enabled:    true,
		URL:        server.URL,
		Timeout:    time.Second,
		RetryCount: 2,
	}, zap.NewNop(), nil)

	webhook.CaseUpdated(context.Background(), fnoldomain.Case{CaseID: "FNOL-AE-2026-000002"})

	deadline := time.After(8 * time.Second)
	seen := 0
	for seen < 2 {
		select {
		case <-attempts:
			seen++
		case <-deadline:
			t.Fatalf("expected 2 delivery attempts, saw %d", seen)
		}
	}
}

func TestWebhook_CloseAbandonsRetries(t *testing.T) {
	attempts := make(chan struct{}, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts <- struct{}{}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	webhook := NewWebhook(config.WebhookConfig{
		Enabled:    true,
		URL:        server.URL,
		Timeout:    time.Second,
		RetryCount: 5,
	}, zap.NewNop(), nil)

	webhook.CaseCreated(context.Background(), fnoldomain.Case{CaseID: "FNOL-AE-2026-000003"})

	select {
	case <-attempts:
	case <-time.After(3 * time.Second):
		t.Fatal("first delivery attempt never arrived")
	}

	// With 5 retries the backoff sum exceeds a minute; Close must interrupt
	// the wait instead of sitting it out.
	closed := make(chan struct{})
	go func() {
		webhook.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("close did not interrupt the retry backoff")
	}
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	n := New(Params{Config: config.Config{}, Log: zap.NewNop()})
	_, ok := n.(noop)
	assert.True(t, ok)

	// A noop notifier never panics on delivery calls.
	n.CaseCreated(context.Background(), fnoldomain.Case{})
	n.CaseUpdated(context.Background(), fnoldomain.Case{})
}
