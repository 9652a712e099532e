package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhook_PostsMessage(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL)
	if err := w.Notify(context.Background(), "scheduled \"Clip\" for Friday"); err != nil {
		t.Fatal(err)
	}
	if got["text"] == "" {
		t.Fatalf("body = %v", got)
	}
}

func TestWebhook_EmptyURLIsNoOp(t *testing.T) {
	var w *Webhook
	if err := w.Notify(context.Background(), "ignored"); err != nil {
		t.Fatal(err)
	}
	if err := (&Webhook{}).Notify(context.Background(), "ignored"); err != nil {
		t.Fatal(err)
	}
}

func TestWebhook_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL).Notify(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}
