package webclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestClientFetch tests fetching with retries and limits.
func TestClientFetch(t *testing.T) {
	t.Parallel()

	t.Run("fetches a page", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>ok</body></html>"))
		}))
		defer srv.Close()

		c := New(5*time.Second, WithBackoffBase(time.Millisecond))
		resp, err := c.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(resp.Body), "ok") {
			t.Errorf("expected body, got %q", resp.Body)
		}
		if !strings.HasPrefix(resp.ContentType, "text/html") {
			t.Errorf("expected html content type, got %q", resp.ContentType)
		}
	})

	t.Run("sends user agent and custom headers", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotHeader, gotCookie string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotHeader = r.Header.Get("X-Custom")
			gotCookie = r.Header.Get("Cookie")
		}))
		defer srv.Close()

		c := New(5*time.Second,
			WithUserAgent("sitebook-test/1.0"),
			WithHeaders(map[string]string{"X-Custom": "yes"}),
			WithCookie("session=abc"),
		)
		if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotUA != "sitebook-test/1.0" {
			t.Errorf("expected custom user agent, got %q", gotUA)
		}
		if gotHeader != "yes" {
			t.Errorf("expected custom header, got %q", gotHeader)
		}
		if gotCookie != "session=abc" {
			t.Errorf("expected cookie header, got %q", gotCookie)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte("recovered"))
		}))
		defer srv.Close()

		c := New(5*time.Second, WithMaxRetries(3), WithBackoffBase(time.Millisecond))
		resp, err := c.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("expected recovery after retries, got %v", err)
		}
		if string(resp.Body) != "recovered" {
			t.Errorf("expected recovered body, got %q", resp.Body)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 attempts, got %d", calls.Load())
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := New(5*time.Second, WithMaxRetries(3), WithBackoffBase(time.Millisecond))
		_, err := c.Fetch(context.Background(), srv.URL)

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404 recorded, got %d", fe.StatusCode)
		}
		if calls.Load() != 1 {
			t.Errorf("expected single attempt for 404, got %d", calls.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := New(5*time.Second, WithMaxRetries(2), WithBackoffBase(time.Millisecond))
		_, err := c.Fetch(context.Background(), srv.URL)

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.Attempts != 3 {
			t.Errorf("expected 3 attempts recorded, got %d", fe.Attempts)
		}
		if calls.Load() != 3 {
			t.Errorf("expected 3 calls (1 + 2 retries), got %d", calls.Load())
		}
	})

	t.Run("caps body size", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
		}))
		defer srv.Close()

		c := New(5*time.Second, WithMaxBodySize(1024))
		resp, err := c.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(resp.Body) != 1024 {
			t.Errorf("expected body capped at 1024, got %d", len(resp.Body))
		}
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := New(5*time.Second, WithMaxRetries(5), WithBackoffBase(time.Hour))
		_, err := c.Fetch(ctx, srv.URL)
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})
}
