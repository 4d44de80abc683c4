package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsAPI_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "artificial intelligence", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		if r.URL.Query().Get("apiKey") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "apiKey invalid"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "ok",
			"articles": []map[string]string{{"title": "H1"}, {"title": "H2"}},
		})
	}))
	defer server.Close()

	ctx := context.Background()

	n := &NewsAPI{APIKey: "secret", BaseURL: server.URL}
	got, err := n.Fetch(ctx, "artificial intelligence")
	require.NoError(t, err)
	assert.Equal(t, "H1\nH2", got)

	bad := &NewsAPI{APIKey: "wrong", BaseURL: server.URL}
	_, err = bad.Fetch(ctx, "artificial intelligence")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "newsapi", fe.Source)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestNewsAPI_ErrorStatusInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"rate limited"}`))
	}))
	defer server.Close()

	_, err := (&NewsAPI{BaseURL: server.URL}).Fetch(context.Background(), "x")
	assert.ErrorContains(t, err, "rate limited")
}

func githubServer(t *testing.T) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		item := func(typ, name, path string) map[string]string {
			return map[string]string{"type": typ, "name": name, "path": path, "download_url": server.URL + "/raw/" + path}
		}
		switch r.URL.Path {
		case "/repos/acme/app/contents/":
			_ = json.NewEncoder(w).Encode([]map[string]string{
				item("file", "Main.java", "Main.java"),
				item("file", "README.md", "README.md"),
				item("dir", "src", "src"),
			})
		case "/repos/acme/app/contents/src":
			_ = json.NewEncoder(w).Encode([]map[string]string{item("file", "Db.java", "src/Db.java")})
		case "/raw/Main.java":
			_, _ = w.Write([]byte("class Main {}"))
		case "/raw/src/Db.java":
			_, _ = w.Write([]byte("class Db {}"))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return server
}

func TestGitHubCode_Fetch(t *testing.T) {
	server := githubServer(t)
	defer server.Close()

	g := &GitHubCode{BaseURL: server.URL}
	got, err := g.Fetch(context.Background(), "https://github.com/acme/app")
	require.NoError(t, err)
	assert.Equal(t, "// Main.java\nclass Main {}\n\n// src/Db.java\nclass Db {}\n", got)
	assert.NotContains(t, got, "README")

	short := &GitHubCode{BaseURL: server.URL, MaxChars: 10}
	got, err = short.Fetch(context.Background(), "https://github.com/acme/app")
	require.NoError(t, err)
	assert.Equal(t, "// Main.ja", got)
}

func TestGitHubCode_Errors(t *testing.T) {
	server := githubServer(t)
	defer server.Close()
	g := &GitHubCode{BaseURL: server.URL}

	_, err := g.Fetch(context.Background(), "https://example.com/not-github")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "github", fe.Source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Fetch(ctx, "https://github.com/acme/app")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRepoPath(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"https://github.com/vulnerable-apps/verademo", "vulnerable-apps/verademo", true},
		{"github.com/a/b/", "a/b", true},
		{"https://github.com/a/b.git", "a/b", true},
		{"https://github.com/a", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := repoPath(tt.in)
		if tt.ok {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

func TestFetcherFunc(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context, q string) (string, error) { return strings.ToUpper(q), nil })
	got, err := f.Fetch(context.Background(), "ai")
	require.NoError(t, err)
	assert.Equal(t, "AI", got)
}
