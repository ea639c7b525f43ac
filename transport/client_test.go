package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cdelta/dotcrdt/crdt"
)

func TestClientSendSuccess(t *testing.T) {
	var received Envelope
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/delta" {
			t.Errorf("expected path /delta, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("server failed to decode envelope: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env, err := NewEnvelope(1, "demo", crdt.TokenStream{crdt.CountToken(0)}, 4)
	if err != nil {
		t.Fatalf("unexpected envelope error: %v", err)
	}

	client := NewClient(5 * time.Second)
	if err := client.Send(server.URL, env); err != nil {
		t.Fatalf("Send should not fail: %v", err)
	}
	if received.ID != env.ID {
		t.Fatalf("expected received envelope ID %s, got %s", env.ID, received.ID)
	}
}

func TestClientSendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(5 * time.Second)
	err := client.Send(server.URL, Envelope{ID: uuid.New()})
	if err == nil {
		t.Fatal("expected Send to fail on a 5xx response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected error to mention status 500, got %v", err)
	}
}

func TestClientSendConnectionRefused(t *testing.T) {
	client := NewClient(1 * time.Second)
	err := client.Send("http://127.0.0.1:1", Envelope{ID: uuid.New()})
	if err == nil {
		t.Fatal("expected Send to fail against a closed port")
	}
}
