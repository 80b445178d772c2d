package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/oracle"
)

// FailureMode makes the node misbehave on eth_call so clients can exercise
// their error paths.
type FailureMode string

const (
	FailNone        FailureMode = ""
	FailRevert      FailureMode = "revert"       // JSON-RPC error object
	FailServerError FailureMode = "server_error" // HTTP 503
	FailRateLimit   FailureMode = "rate_limit"   // HTTP 429
	FailGarbage     FailureMode = "garbage"      // body is not JSON
	FailHang        FailureMode = "hang"         // no answer until the client gives up
)

func (m FailureMode) valid() bool {
	switch m {
	case FailNone, FailRevert, FailServerError, FailRateLimit, FailGarbage, FailHang:
		return true
	}
	return false
}

const devChainID = "0x7a69" // 31337, the usual local dev chain

// Node is an in-memory fingerprint registry behind a minimal JSON-RPC surface:
// eth_call for getHash(address) on one contract, and eth_chainId.
type Node struct {
	contract models.Address
	latency  time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	hashes  map[models.Address]string
	failure FailureMode
}

func NewNode(contract models.Address, latency time.Duration, logger *slog.Logger) *Node {
	return &Node{
		contract: contract,
		latency:  latency,
		logger:   logger,
		hashes:   make(map[models.Address]string),
	}
}

// Anchor sets the fingerprint for addr. An empty fingerprint clears it.
func (n *Node) Anchor(addr models.Address, fingerprint string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if fingerprint == "" {
		delete(n.hashes, addr)
		return
	}
	n.hashes[addr] = fingerprint
}

func (n *Node) SetFailure(mode FailureMode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failure = mode
}

func (n *Node) lookup(addr models.Address) (string, FailureMode) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.hashes[addr], n.failure
}

// Routes mounts the JSON-RPC endpoint at / and the fixture admin endpoints.
func (n *Node) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /", n.handleRPC)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "ledger-node"})
	})
	mux.HandleFunc("PUT /fixtures/{address}", n.handleAnchor)
	mux.HandleFunc("DELETE /fixtures/{address}", n.handleAnchor)
	mux.HandleFunc("PUT /failure", n.handleFailure)
	return mux
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// callParams accepts both "input" (current clients) and the older "data" field.
type callParams struct {
	To    string        `json:"to"`
	Input hexutil.Bytes `json:"input"`
	Data  hexutil.Bytes `json:"data"`
}

func (c callParams) calldata() []byte {
	if len(c.Input) > 0 {
		return c.Input
	}
	return c.Data
}

func (n *Node) handleRPC(w http.ResponseWriter, r *http.Request) {
	if n.latency > 0 {
		select {
		case <-time.After(n.latency):
		case <-r.Context().Done():
			return
		}
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
		return
	}

	switch req.Method {
	case "eth_chainId":
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: devChainID})
	case "eth_call":
		n.handleCall(r.Context(), w, req)
	default:
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: -32601, Message: "method not found: " + req.Method}})
	}
}

func (n *Node) handleCall(ctx context.Context, w http.ResponseWriter, req rpcRequest) {
	var call callParams
	if len(req.Params) == 0 || json.Unmarshal(req.Params[0], &call) != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: -32602, Message: "invalid params"}})
		return
	}

	// A call to any other address hits an account with no code.
	if !strings.EqualFold(call.To, n.contract.String()) {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: "0x"})
		return
	}

	addr, err := oracle.DecodeGetHashCall(call.calldata())
	if err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: 3, Message: "execution reverted"}})
		return
	}

	fingerprint, failure := n.lookup(addr)
	switch failure {
	case FailRevert:
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: 3, Message: "execution reverted"}})
		return
	case FailServerError:
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		return
	case FailRateLimit:
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	case FailGarbage:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<html>not json</html>"))
		return
	case FailHang:
		<-ctx.Done()
		return
	}

	result, err := oracle.EncodeString(fingerprint)
	if err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID,
			Error: &rpcError{Code: -32603, Message: err.Error()}})
		return
	}
	n.logger.DebugContext(ctx, "eth_call getHash", "address", addr, "anchored", fingerprint != "")
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: hexutil.Encode(result)})
}

type anchorRequest struct {
	Fingerprint string `json:"fingerprint"`
}

func (n *Node) handleAnchor(w http.ResponseWriter, r *http.Request) {
	addr, err := models.ParseAddress(r.PathValue("address"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var req anchorRequest
	if r.Method == http.MethodPut {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}
	}
	n.Anchor(addr, strings.TrimSpace(req.Fingerprint))
	n.logger.Info("fixture updated", "address", addr, "fingerprint", req.Fingerprint)
	w.WriteHeader(http.StatusNoContent)
}

type failureRequest struct {
	Mode FailureMode `json:"mode"`
}

func (n *Node) handleFailure(w http.ResponseWriter, r *http.Request) {
	var req failureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Mode.valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be one of: '', revert, server_error, rate_limit, garbage, hang"})
		return
	}
	n.SetFailure(req.Mode)
	n.logger.Info("failure mode set", "mode", string(req.Mode))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
