package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendPostsPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client())
	if err := n.Send(context.Background(), "#customer-alerts", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Channel != "#customer-alerts" || got.Text != "hello" {
		t.Errorf("payload = %+v", got)
	}
}

func TestSendReportsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client())
	if err := n.Send(context.Background(), "#customer-alerts", "hello"); err == nil {
		t.Error("expected error on 400 response")
	}
}

func TestSendDisabledIsNoop(t *testing.T) {
	n := NewSlackNotifier("", nil)
	if err := n.Send(context.Background(), "#customer-alerts", "hello"); err != nil {
		t.Errorf("disabled Send should succeed, got %v", err)
	}
}
