package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RecomputeResponse is the subset of the recompute answer the seed tool reports.
type RecomputeResponse struct {
	Updated int `json:"updated"`
	Cohort  struct {
		Mean        float64 `json:"mean"`
		Std         float64 `json:"std"`
		SampleSize  int     `json:"sampleSize"`
		IsLowSample bool    `json:"isLowSample"`
	} `json:"cohort"`
}

// Client calls a running service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Recompute asks the service to re-normalize a cohort.
func (c *Client) Recompute(ctx context.Context, assessmentType string) (RecomputeResponse, error) {
	var out RecomputeResponse

	endpoint := c.baseURL + "/cohorts/" + url.PathEscape(assessmentType) + "/recompute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return out, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("recompute %s: %w", assessmentType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("recompute %s: status %d: %s", assessmentType, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
