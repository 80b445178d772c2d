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

	"github.com/urfave/cli/v2"

	"walletverify/internal/admin"
	"walletverify/pkg/platform/httputil"
)

const defaultHTTPTimeout = 10 * time.Second

// apiError is a non-2xx response from the server.
type apiError struct {
	Status      int
	Code        string
	Description string
}

func (e *apiError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Description)
}

type apiClient struct {
	baseURL    string
	bearer     string
	adminToken string
	http       *http.Client
}

func newClient(c *cli.Context) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(c.String("server"), "/"),
		bearer:     c.String("token"),
		adminToken: c.String("admin-token"),
		http:       &http.Client{Timeout: c.Duration("timeout")},
	}
}

// do sends body as JSON and decodes a 2xx response into out. It returns the
// raw response body so --json can print it unchanged.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.adminToken != "" {
		req.Header.Set(admin.HeaderStaticToken, c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var envelope httputil.ErrorResponse
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error == "" {
			return raw, resp.StatusCode, &apiError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		}
		return raw, resp.StatusCode, &apiError{Status: resp.StatusCode, Code: envelope.Error, Description: envelope.Description}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return raw, resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return raw, resp.StatusCode, nil
}
