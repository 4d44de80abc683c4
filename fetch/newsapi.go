package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultNewsAPIURL is the public NewsAPI endpoint.
const DefaultNewsAPIURL = "https://newsapi.org"

// NewsAPI fetches recent headlines for a topic from NewsAPI's /v2/everything
// endpoint and returns the article titles, one per line.
type NewsAPI struct {
	APIKey   string
	BaseURL  string // defaults to DefaultNewsAPIURL
	PageSize int    // defaults to 5
	Client   *http.Client
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

// Fetch implements Fetcher.
func (n *NewsAPI) Fetch(ctx context.Context, topic string) (string, error) {
	base := n.BaseURL
	if base == "" {
		base = DefaultNewsAPIURL
	}
	pageSize := n.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}

	q := url.Values{}
	q.Set("q", topic)
	q.Set("apiKey", n.APIKey)
	q.Set("pageSize", strconv.Itoa(pageSize))
	endpoint := strings.TrimRight(base, "/") + "/v2/everything?" + q.Encode()

	var resp newsResponse
	if err := getJSON(ctx, clientOrDefault(n.Client), endpoint, nil, &resp); err != nil {
		return "", &FetchError{Source: "newsapi", Query: topic, Err: err}
	}
	if resp.Status == "error" {
		return "", &FetchError{Source: "newsapi", Query: topic, Err: errors.New(resp.Message)}
	}

	titles := make([]string, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		titles = append(titles, a.Title)
	}
	return strings.Join(titles, "\n"), nil
}
