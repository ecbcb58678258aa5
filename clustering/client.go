package clustering

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cluster-dashboard-go/models"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Service endpoints and request timeout used when Config leaves them unset.
const (
	// DefaultOfficialPath serves the canonical GWA x income run.
	DefaultOfficialPath = "/api/clusters"

	// DefaultPlaygroundPath serves GWA x income runs with a chosen k.
	DefaultPlaygroundPath = "/api/clusters/playground"

	// DefaultPairwisePath serves runs on two chosen features.
	DefaultPairwisePath = "/api/clusters/pairwise"

	// DefaultTimeout bounds one request to the service.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4 << 10
)

// OfficialResponse is the canonical GWA x income run.
type OfficialResponse struct {
	Clusters  map[string][]models.Student `json:"clusters"`
	Centroids [][]float64                 `json:"centroids"`
	K         int                         `json:"k"`
}

// PlaygroundResponse is a fresh GWA x income run with a caller-chosen k.
type PlaygroundResponse struct {
	Students  []models.Student `json:"students"`
	Centroids [][]float64      `json:"centroids"`
}

// PairwiseResponse is a run on two caller-chosen features.
type PairwiseResponse struct {
	Students    []models.Student `json:"students"`
	Centroids   [][]float64      `json:"centroids"`
	XName       string           `json:"x_name"`
	YName       string           `json:"y_name"`
	XCategories []string         `json:"x_categories"`
	YCategories []string         `json:"y_categories"`
	K           int              `json:"k"`
}

// StatusError is a non-2xx reply from the clustering service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clustering service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("clustering service returned %d: %s", e.StatusCode, e.Message)
}

// Validation reports whether the service rejected the request parameters.
func (e *StatusError) Validation() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Config locates the clustering service.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	OfficialPath   string
	PlaygroundPath string
	PairwisePath   string
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.OfficialPath == "" {
		c.OfficialPath = DefaultOfficialPath
	}
	if c.PlaygroundPath == "" {
		c.PlaygroundPath = DefaultPlaygroundPath
	}
	if c.PairwisePath == "" {
		c.PairwisePath = DefaultPairwisePath
	}
}

// Client talks to the external clustering service over HTTP.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a Client. A nil logger disables logging.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Official fetches the canonical clustering result.
func (c *Client) Official(ctx context.Context) (*OfficialResponse, error) {
	var resp OfficialResponse
	if err := c.get(ctx, c.cfg.OfficialPath, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Playground runs a fresh GWA x income clustering with k clusters.
func (c *Client) Playground(ctx context.Context, k int) (*PlaygroundResponse, error) {
	q := url.Values{"k": {strconv.Itoa(k)}}
	var resp PlaygroundResponse
	if err := c.get(ctx, c.cfg.PlaygroundPath, q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pairwise runs a fresh clustering on features x and y with k clusters.
func (c *Client) Pairwise(ctx context.Context, x, y string, k int) (*PairwiseResponse, error) {
	q := url.Values{"x": {x}, "y": {y}, "k": {strconv.Itoa(k)}}
	var resp PairwiseResponse
	if err := c.get(ctx, c.cfg.PairwisePath, q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Clustering request failed", zap.String("url", endpoint), zap.Error(err))
		return fmt.Errorf("failed to reach clustering service: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Clustering response",
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode clustering response from %s: %w", path, err)
	}
	return nil
}

// errorMessage pulls "error" or "message" out of a JSON error body, falling
// back to the trimmed raw body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}
