package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "tok-123"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestFetchEventsEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/session/sess-1/events" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("offset"); got != "40" {
			t.Errorf("expected offset=40, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "200" {
			t.Errorf("expected limit=200, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Write([]byte(`{"events":[{"id":"e1","event_type":"tool_call","tool_name":"exec"}],"total_count":41}`))
	})

	events, total, err := c.FetchEvents(context.Background(), "sess-1", 40, 200)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 1 || events[0].ToolName != "exec" {
		t.Errorf("unexpected events: %v", events)
	}
	if total != 41 {
		t.Errorf("expected total 41, got %d", total)
	}
}

func TestFetchEventsBareArrayFallback(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"e1","event_type":"speech"},{"id":"e2","event_type":"action"}]`))
	})

	events, total, err := c.FetchEvents(context.Background(), "s", 0, 200)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 2 || total != 2 {
		t.Errorf("expected 2 events from bare array, got %d (total %d)", len(events), total)
	}
}

func TestFetchEventsEmptyEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[],"total_count":0}`))
	})

	events, _, err := c.FetchEvents(context.Background(), "s", 0, 200)
	if err != nil {
		t.Fatalf("empty envelope must not be an error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestFetchEventsHTTPError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, err := c.FetchEvents(context.Background(), "s", 0, 200)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", apiErr.StatusCode)
	}
	if apiErr.Error() != "events endpoint returned HTTP 502 Bad Gateway" {
		t.Errorf("unexpected message: %q", apiErr.Error())
	}
}

func TestFetchEventsInvalidPayload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"surprise":true}`))
	})

	_, _, err := c.FetchEvents(context.Background(), "s", 0, 200)
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestFetchEventsCancelled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"events":[],"total_count":0}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.FetchEvents(ctx, "s", 0, 200)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled to surface, got %v", err)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing base URL")
	}
}
