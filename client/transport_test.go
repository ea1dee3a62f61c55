package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestTransportReplaysWithoutRefreshWhenTokenAlreadyRotated(t *testing.T) {
	tokens := &TokenStore{}
	tokens.Set("old", "r1")

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer new" {
			// simulate a refresh completing elsewhere while this request was in flight
			tokens.Set("new", "r2")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var refreshes atomic.Int32
	coord := NewCoordinator(func(context.Context) error {
		refreshes.Add(1)
		return nil
	}, CoordinatorOptions{})
	hc := &http.Client{Transport: &Transport{Tokens: tokens, Coordinator: coord}}

	resp, err := hc.Get(srv.URL + "/api/posts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected replay to succeed, got %d", resp.StatusCode)
	}
	if refreshes.Load() != 0 || hits.Load() != 2 {
		t.Fatalf("expected replay without refresh, refreshes=%d hits=%d", refreshes.Load(), hits.Load())
	}
}

func TestTransportCanceledWhileWaiting(t *testing.T) {
	tokens := &TokenStore{}
	tokens.Set("old", "r1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithCancel(context.Background())
	coord := NewCoordinator(func(context.Context) error {
		cancel()
		<-release
		return nil
	}, CoordinatorOptions{})
	hc := &http.Client{Transport: &Transport{Tokens: tokens, Coordinator: coord}}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/posts", nil)
	if _, err := hc.Do(req); err == nil {
		t.Fatal("expected canceled request to fail")
	}
	if coord.queued() != 0 {
		t.Fatal("canceled request must leave the queue")
	}
}

type closeTracker struct {
	io.Reader
	closed atomic.Bool
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	return nil
}

func TestTransportLeavesCallerRequestIntact(t *testing.T) {
	tokens := &TokenStore{}
	tokens.Set("old", "r1")

	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	coord := NewCoordinator(func(context.Context) error {
		tokens.Set("new", "r2")
		return nil
	}, CoordinatorOptions{})
	tr := &Transport{Tokens: tokens, Coordinator: coord}

	body := &closeTracker{Reader: strings.NewReader("draft")}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/posts", body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected replay to succeed, got %d", resp.StatusCode)
	}
	mu.Lock()
	got := append([]string(nil), bodies...)
	mu.Unlock()
	if len(got) != 2 || got[0] != "draft" || got[1] != "draft" {
		t.Fatalf("expected body on both attempts, got %q", got)
	}
	if req.GetBody != nil || req.Body != io.ReadCloser(body) {
		t.Fatal("caller request must not be modified")
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("caller headers must not be modified")
	}
	if !body.closed.Load() {
		t.Fatal("expected caller body to be closed")
	}
}
