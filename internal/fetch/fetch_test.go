package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("frame", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := New(nil).Fetch(context.Background(), srv.URL+"/video.mp4", &buf)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("Fetch() = %d bytes, want %d", n, len(payload))
	}
	if buf.String() != payload {
		t.Error("body mismatch")
	}
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantEmpty  bool
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "missing", http.StatusNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "no content",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			wantEmpty: true,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantEmpty: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			var buf bytes.Buffer
			_, err := New(nil).Fetch(context.Background(), srv.URL, &buf)
			if err == nil {
				t.Fatal("expected error")
			}

			if tt.wantStatus != 0 {
				var se *StatusError
				if !errors.As(err, &se) {
					t.Fatalf("expected *StatusError, got %T (%v)", err, err)
				}
				if se.StatusCode != tt.wantStatus {
					t.Errorf("StatusCode = %d, want %d", se.StatusCode, tt.wantStatus)
				}
			}
			if tt.wantEmpty && !errors.Is(err, ErrEmptyBody) {
				t.Errorf("expected ErrEmptyBody, got %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("nothing should be written on failure, got %d bytes", buf.Len())
			}
		})
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	t.Parallel()

	tests := []string{
		"ftp://example.com/video.mp4",
		"not a url at all",
		"://missing-scheme",
	}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := New(nil).Fetch(context.Background(), raw, &buf); err == nil {
				t.Errorf("expected error for %q", raw)
			}
		})
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var buf bytes.Buffer
	if _, err := New(nil).Fetch(context.Background(), url, &buf); err == nil {
		t.Error("expected error for closed server")
	}
}

func TestNewClient_Timeouts(t *testing.T) {
	t.Parallel()

	client := NewClient(0)
	if client.Timeout != 0 {
		t.Errorf("client.Timeout = %v, want 0 (no overall deadline)", client.Timeout)
	}

	tr, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport = %T, want *http.Transport", client.Transport)
	}
	if tr.ResponseHeaderTimeout != defaultHeaderTimeout {
		t.Errorf("ResponseHeaderTimeout = %v, want %v", tr.ResponseHeaderTimeout, defaultHeaderTimeout)
	}
}
