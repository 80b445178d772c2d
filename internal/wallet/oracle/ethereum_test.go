package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletverify/internal/wallet/models"
	"walletverify/pkg/testutil"
)

const testContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

// ledgerNode answers JSON-RPC calls with respond, recording the last call seen.
func ledgerNode(t *testing.T, respond func(w http.ResponseWriter, call rpcCall)) (*httptest.Server, *atomic.Pointer[rpcCall]) {
	t.Helper()
	last := &atomic.Pointer[rpcCall]{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		last.Store(&call)
		respond(w, call)
	}))
	t.Cleanup(srv.Close)
	return srv, last
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": id, "result": result})
}

func encodedString(t *testing.T, s string) string {
	t.Helper()
	data, err := EncodeString(s)
	require.NoError(t, err)
	return hexutil.Encode(data)
}

func testAddress(t *testing.T) models.Address {
	t.Helper()
	addr, err := models.ParseAddress(testutil.TestWallets.Address1.String())
	require.NoError(t, err)
	return addr
}

func TestEthereumAdapter_ReadFingerprint(t *testing.T) {
	addr := testAddress(t)

	t.Run("anchored fingerprint", func(t *testing.T) {
		srv, last := ledgerNode(t, func(w http.ResponseWriter, call rpcCall) {
			writeResult(w, call.ID, encodedString(t, testutil.TestWallets.Fingerprint1))
		})
		adapter := NewEthereumAdapter(EthereumConfig{RPCURL: srv.URL, ContractAddress: testContract})

		reading, err := adapter.ReadFingerprint(context.Background(), addr)

		require.NoError(t, err)
		assert.True(t, reading.Anchored)
		assert.Equal(t, testutil.TestWallets.Fingerprint1, reading.Fingerprint)

		call := last.Load()
		require.NotNil(t, call)
		assert.Equal(t, "eth_call", call.Method)
		require.Len(t, call.Params, 2)
		var tx map[string]any
		require.NoError(t, json.Unmarshal(call.Params[0], &tx))
		to, _ := tx["to"].(string)
		assert.True(t, strings.EqualFold(testContract, to), "to = %q", to)
		expected, err := EncodeGetHashCall(addr)
		require.NoError(t, err)
		assert.Equal(t, hexutil.Encode(expected), tx["input"])
		assert.JSONEq(t, `"latest"`, string(call.Params[1]))
	})

	t.Run("empty string is absent", func(t *testing.T) {
		srv, _ := ledgerNode(t, func(w http.ResponseWriter, call rpcCall) {
			writeResult(w, call.ID, encodedString(t, ""))
		})
		adapter := NewEthereumAdapter(EthereumConfig{RPCURL: srv.URL, ContractAddress: testContract})

		reading, err := adapter.ReadFingerprint(context.Background(), addr)

		require.NoError(t, err)
		assert.Equal(t, Absent, reading)
	})

	t.Run("bare 0x is absent", func(t *testing.T) {
		srv, _ := ledgerNode(t, func(w http.ResponseWriter, call rpcCall) {
			writeResult(w, call.ID, "0x")
		})
		adapter := NewEthereumAdapter(EthereumConfig{RPCURL: srv.URL, ContractAddress: testContract})

		reading, err := adapter.ReadFingerprint(context.Background(), addr)

		require.NoError(t, err)
		assert.False(t, reading.Anchored)
	})

	failures := []struct {
		name      string
		respond   func(w http.ResponseWriter, call rpcCall)
		category  Category
		retryable bool
	}{
		{
			name: "revert is an rpc error",
			respond: func(w http.ResponseWriter, call rpcCall) {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"jsonrpc": "2.0", "id": call.ID,
					"error": map[string]any{"code": 3, "message": "execution reverted"},
				})
			},
			category: CategoryRPCError,
		},
		{
			name:      "5xx is a node error",
			respond:   func(w http.ResponseWriter, _ rpcCall) { w.WriteHeader(http.StatusBadGateway) },
			category:  CategoryNodeError,
			retryable: true,
		},
		{
			name:      "429 is rate limited",
			respond:   func(w http.ResponseWriter, _ rpcCall) { w.WriteHeader(http.StatusTooManyRequests) },
			category:  CategoryRateLimited,
			retryable: true,
		},
		{
			name:     "4xx is an rpc error",
			respond:  func(w http.ResponseWriter, _ rpcCall) { w.WriteHeader(http.StatusForbidden) },
			category: CategoryRPCError,
		},
		{
			name:     "garbage body is bad data",
			respond:  func(w http.ResponseWriter, _ rpcCall) { _, _ = w.Write([]byte("<html>")) },
			category: CategoryBadData,
		},
		{
			name:     "null result is bad data",
			respond:  func(w http.ResponseWriter, call rpcCall) { writeResult(w, call.ID, nil) },
			category: CategoryBadData,
		},
		{
			name:     "non-hex result is bad data",
			respond:  func(w http.ResponseWriter, call rpcCall) { writeResult(w, call.ID, 42) },
			category: CategoryBadData,
		},
		{
			name:     "undecodable abi is bad data",
			respond:  func(w http.ResponseWriter, call rpcCall) { writeResult(w, call.ID, "0x1234") },
			category: CategoryBadData,
		},
	}
	for _, tc := range failures {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := ledgerNode(t, tc.respond)
			adapter := NewEthereumAdapter(EthereumConfig{RPCURL: srv.URL, ContractAddress: testContract})

			_, err := adapter.ReadFingerprint(context.Background(), addr)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.Equal(t, tc.category, CategoryOf(err))
			assert.Equal(t, tc.retryable, IsRetryable(err))
		})
	}

	t.Run("deadline is a timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv, _ := ledgerNode(t, func(w http.ResponseWriter, call rpcCall) {
			<-release
			writeResult(w, call.ID, "0x")
		})
		defer close(release)
		adapter := NewEthereumAdapter(EthereumConfig{RPCURL: srv.URL, ContractAddress: testContract})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := adapter.ReadFingerprint(ctx, addr)

		require.Error(t, err)
		assert.Equal(t, CategoryTimeout, CategoryOf(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("refused connection is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		adapter := NewEthereumAdapter(EthereumConfig{RPCURL: url, ContractAddress: testContract})

		_, err := adapter.ReadFingerprint(context.Background(), addr)

		assert.Equal(t, CategoryTransport, CategoryOf(err))
	})
}

type countingTransport struct{ calls atomic.Int32 }

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, errors.New("should not be called")
}

func TestEthereumAdapter_Misconfigured(t *testing.T) {
	cases := map[string]EthereumConfig{
		"no rpc url":          {ContractAddress: testContract},
		"placeholder address": {RPCURL: "http://localhost:8545", ContractAddress: "0x..."},
		"empty address":       {RPCURL: "http://localhost:8545"},
		"unsupported scheme":  {RPCURL: "ftp://localhost:8545", ContractAddress: testContract},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			transport := &countingTransport{}
			cfg.HTTPClient = &http.Client{Transport: transport}
			adapter := NewEthereumAdapter(cfg)
			defer adapter.Close()

			assert.False(t, adapter.Configured())
			_, err := adapter.ReadFingerprint(context.Background(), testAddress(t))
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.Equal(t, CategoryMisconfigured, CategoryOf(err))
			assert.False(t, IsRetryable(err))
			assert.Error(t, adapter.Health(context.Background()))
			assert.Zero(t, transport.calls.Load(), "misconfigured adapter must not touch the network")
		})
	}
}

func TestEthereumAdapter_UsesInjectedHTTPClient(t *testing.T) {
	srv, _ := ledgerNode(t, func(w http.ResponseWriter, call rpcCall) {
		writeResult(w, call.ID, encodedString(t, "QmInjected"))
	})
	transport := &forwardingTransport{next: http.DefaultTransport}
	adapter := NewEthereumAdapter(EthereumConfig{
		RPCURL:          srv.URL,
		ContractAddress: testContract,
		HTTPClient:      &http.Client{Transport: transport},
	})
	defer adapter.Close()

	reading, err := adapter.ReadFingerprint(context.Background(), testAddress(t))

	require.NoError(t, err)
	assert.Equal(t, "QmInjected", reading.Fingerprint)
	assert.Equal(t, int32(1), transport.calls.Load())
}

type forwardingTransport struct {
	next  http.RoundTripper
	calls atomic.Int32
}

func (f *forwardingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return f.next.RoundTrip(r)
}

func TestEthereumAdapter_Health(t *testing.T) {
	srv, last := ledgerNode(t, func(w http.ResponseWriter, call rpcCall) {
		writeResult(w, call.ID, "0x7a69")
	})
	adapter := NewEthereumAdapter(EthereumConfig{RPCURL: srv.URL, ContractAddress: testContract})

	require.NoError(t, adapter.Health(context.Background()))
	assert.Equal(t, "eth_chainId", last.Load().Method)
}
