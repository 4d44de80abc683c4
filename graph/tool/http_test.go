package tool

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPTool_Call(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if r.Header.Get("X-Token") != "abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"price":"42"}`))
		case http.MethodPost:
			b, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(b)
		}
	}))
	defer server.Close()

	h := NewHTTPTool(nil)
	ctx := context.Background()

	decode := func(t *testing.T, raw string) (int, string) {
		t.Helper()
		var out struct {
			StatusCode int    `json:"status_code"`
			Body       string `json:"body"`
		}
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			t.Fatalf("result %q: %v", raw, err)
		}
		return out.StatusCode, out.Body
	}

	t.Run("GET with headers", func(t *testing.T) {
		raw, err := h.Call(ctx, Arguments{"url": server.URL, "headers": `{"X-Token":"abc"}`})
		if err != nil {
			t.Fatal(err)
		}
		code, body := decode(t, raw)
		if code != http.StatusOK || body != `{"price":"42"}` {
			t.Errorf("got %d %q", code, body)
		}
	})

	t.Run("non-2xx is a result", func(t *testing.T) {
		raw, err := h.Call(ctx, Arguments{"url": server.URL})
		if err != nil {
			t.Fatal(err)
		}
		if code, _ := decode(t, raw); code != http.StatusUnauthorized {
			t.Errorf("status = %d", code)
		}
	})

	t.Run("POST echoes body", func(t *testing.T) {
		raw, err := h.Call(ctx, Arguments{"url": server.URL, "method": "post", "body": "hello"})
		if err != nil {
			t.Fatal(err)
		}
		code, body := decode(t, raw)
		if code != http.StatusCreated || body != "hello" {
			t.Errorf("got %d %q", code, body)
		}
	})
}

func TestHTTPTool_Errors(t *testing.T) {
	h := NewHTTPTool(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		args Arguments
		want string
	}{
		{"missing url", Arguments{}, "url parameter required"},
		{"bad method", Arguments{"url": "http://x", "method": "DELETE"}, "unsupported HTTP method"},
		{"bad headers", Arguments{"url": "http://x", "headers": "nope"}, "headers must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Call(ctx, tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestHTTPTool_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := NewHTTPTool(nil).Call(ctx, Arguments{"url": server.URL}); err == nil {
		t.Error("expected timeout error")
	}
}

func TestHTTPTool_Describe(t *testing.T) {
	spec := NewHTTPTool(nil).Describe()
	if spec.Name != "http_request" || spec.Schema["required"].([]string)[0] != "url" {
		t.Errorf("spec = %+v", spec)
	}
}
