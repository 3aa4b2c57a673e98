package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiError mirrors the server's error body.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// client talks to the dashboard HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(server string, timeout time.Duration) *client {
	return &client{
		base: strings.TrimRight(server, "/") + "/api",
		http: &http.Client{Timeout: timeout},
	}
}

// do sends body as JSON and decodes the response into out when out is non-nil. The
// response's X-Source-Status header is returned.
func (c *client) do(ctx context.Context, method, path string, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	status := resp.Header.Get("X-Source-Status")
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "HTTP_ERROR"
			apiErr.Message = resp.Status
		}
		return status, apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return status, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return status, fmt.Errorf("decode response: %w", err)
	}
	return status, nil
}
