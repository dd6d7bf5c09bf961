package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMakeRequestSetsHeaders(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewBaseClient(server.URL)
	c.SetHeader("Content-Type", "application/json")

	status, body, err := c.Get(context.Background(), "/anything")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestMakeRequestReturnsErrorBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"ok":false,"error":"match is closed"}`))
	}))
	defer server.Close()

	c := NewBaseClient(server.URL)
	status, body, err := c.Post(context.Background(), "/api/matches/x/events", nil)
	if err != nil {
		t.Fatalf("a non-2xx status must not be a transport error, got %v", err)
	}
	if status != http.StatusConflict {
		t.Errorf("status = %d, want 409", status)
	}
	if string(body) != `{"ok":false,"error":"match is closed"}` {
		t.Errorf("body = %s", body)
	}
}

func TestMakeRequestHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewBaseClient(server.URL)
	if _, _, err := c.Get(ctx, "/slow"); err == nil {
		t.Fatal("expected an error from the cancelled context")
	}
}
