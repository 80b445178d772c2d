package e2e

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds state between steps of one scenario.
type TestContext struct {
	BaseURL          string
	LedgerURL        string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	AdminUsername string
	AdminPassword string
	AdminToken    string
	SessionToken  string
	Address       string
}

// NewTestContext reads endpoints and admin credentials from the environment.
func NewTestContext() *TestContext {
	return &TestContext{
		BaseURL:       getenv("BASE_URL", "http://localhost:8080"),
		LedgerURL:     getenv("LEDGER_URL", "http://localhost:8545"),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin-e2e-password"),
		AdminToken:    getenv("ADMIN_STATIC_TOKEN", "e2e-admin-token"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewAddress returns a random lowercase address so scenarios never share wallets.
func NewAddress() string {
	b := make([]byte, 20)
	_, _ = rand.Read(b)
	return "0x" + hex.EncodeToString(b)
}

func (tc *TestContext) do(method, url string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// POST makes a POST request against the server and stores the response.
func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	return tc.do(http.MethodPost, tc.BaseURL+path, body, headers)
}

// GET makes a GET request against the server and stores the response.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, tc.BaseURL+path, nil, headers)
}

// Ledger sends a fixture request to the dev ledger node. Its response is not
// kept as the last response.
func (tc *TestContext) Ledger(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.LedgerURL+path, reader)
	if err != nil {
		return err
	}
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ledger node unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ledger node %s %s: %d %s", method, path, resp.StatusCode, msg)
	}
	return nil
}

// GetResponseField reads a dotted path such as "wallet.verified" from the JSON response.
func (tc *TestContext) GetResponseField(path string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", path)
		}
		if data, ok = obj[key]; !ok {
			return nil, fmt.Errorf("field %s not found in response", path)
		}
	}
	return data, nil
}

// ResponseContains checks if the response body contains a field or text.
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	_, err := tc.GetResponseField(text)
	return err == nil
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) GetAddress() string { return tc.Address }
func (tc *TestContext) SetAddress(address string) { tc.Address = address }
func (tc *TestContext) GetAdminToken() string { return tc.AdminToken }
func (tc *TestContext) GetSessionToken() string { return tc.SessionToken }
func (tc *TestContext) SetSessionToken(t string) { tc.SessionToken = t }
func (tc *TestContext) GetAdminUsername() string { return tc.AdminUsername }
func (tc *TestContext) GetAdminPassword() string { return tc.AdminPassword }
func (tc *TestContext) NewAddress() string { return NewAddress() }
