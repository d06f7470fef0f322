package stardex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Health fetches the service health report. An unhealthy service answers
// 503 with the same body shape, so that status is decoded rather than
// treated as an API error.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("stardex: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return HealthReport{}, fmt.Errorf("stardex: /health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthReport{}, decodeAPIError(resp)
	}

	var report HealthReport
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return HealthReport{}, fmt.Errorf("stardex: read /health response: %w", err)
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return HealthReport{}, fmt.Errorf("stardex: decode /health response: %w", err)
	}
	return report, nil
}
