// Package httpclient provides helpers for JSON-over-HTTP GET APIs.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned when the server responds with a status code
// outside the accepted set.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// GetBytes issues a GET against baseURL+endpoint and returns the raw body.
func GetBytes(ctx context.Context, client *http.Client, baseURL, endpoint string, okStatuses []int) ([]byte, error) {
	url := baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't create request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("couldn't GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	ok := false
	for _, status := range okStatuses {
		if resp.StatusCode == status {
			ok = true
			break
		}
	}
	if !ok {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("couldn't read response from %s: %w", url, err)
	}
	return body, nil
}

// GetResource issues a GET against baseURL+endpoint and decodes the JSON
// body into T.
func GetResource[T any](ctx context.Context, client *http.Client, baseURL, endpoint string, okStatuses []int) (T, error) {
	var resource T
	body, err := GetBytes(ctx, client, baseURL, endpoint, okStatuses)
	if err != nil {
		return resource, err
	}
	if err := json.Unmarshal(body, &resource); err != nil {
		return resource, fmt.Errorf("couldn't decode response from %s%s: %w", baseURL, endpoint, err)
	}
	return resource, nil
}
