// Package tmdb is a small client for The Movie Database API.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/laocinema/lao-cinema-api/internal/config"
	"github.com/laocinema/lao-cinema-api/internal/logging"
	"github.com/laocinema/lao-cinema-api/internal/metrics"
)

var (
	ErrNotConfigured = errors.New("tmdb api key is not configured")
	ErrNotFound      = errors.New("movie not found on tmdb")
	ErrUnavailable   = errors.New("tmdb is temporarily unavailable")
)

const breakerName = "tmdb-api"

// Client fetches movie metadata. Calls go through a circuit breaker so a
// failing upstream is not hammered by editors retrying imports.
type Client struct {
	apiKey       string
	baseURL      string
	imageBaseURL string
	httpClient   *http.Client
	cb           *gobreaker.CircuitBreaker[*Movie]
	logger       *logging.Logger
}

func NewClient(cfg config.TMDBConfig, logger *logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}

	metrics.TMDBCircuitState.Set(0)
	c.cb = gobreaker.NewCircuitBreaker[*Movie](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a 404 is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.TMDBCircuitState.Set(stateValue(to))
		},
	})

	return c
}

// ImageURL turns a TMDB file path into an absolute URL
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	return c.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}

// GetMovie fetches a movie with its credits and images.
func (c *Client) GetMovie(ctx context.Context, tmdbID int) (*Movie, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	movie, err := c.cb.Execute(func() (*Movie, error) {
		return c.fetchMovie(ctx, tmdbID)
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordTMDBRequest("success", elapsed)
		return movie, nil
	case errors.Is(err, ErrNotFound):
		metrics.RecordTMDBRequest("not_found", elapsed)
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordTMDBRequest("circuit_open", 0)
		return nil, ErrUnavailable
	default:
		metrics.RecordTMDBRequest("error", elapsed)
		c.logger.Error("tmdb request failed", "tmdb_id", tmdbID, "error", err)
		return nil, err
	}
}

func (c *Client) fetchMovie(ctx context.Context, tmdbID int) (*Movie, error) {
	u, err := url.Parse(c.baseURL + "/movie/" + strconv.Itoa(tmdbID))
	if err != nil {
		return nil, fmt.Errorf("invalid tmdb url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("append_to_response", "credits,images")
	// keep untagged and every-language images so logos come through
	q.Set("include_image_language", "en,lo,null")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tmdb request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tmdb returned status %d", resp.StatusCode)
	}

	var movie Movie
	if err := json.NewDecoder(resp.Body).Decode(&movie); err != nil {
		return nil, fmt.Errorf("failed to decode tmdb response: %w", err)
	}
	return &movie, nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
