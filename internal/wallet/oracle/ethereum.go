package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"walletverify/internal/wallet/models"
)

// EthereumConfig configures the JSON-RPC adapter.
type EthereumConfig struct {
	RPCURL          string
	ContractAddress string
	// Timeout bounds the HTTP client when HTTPClient is nil. Per-call deadlines
	// come from the context.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// EthereumAdapter reads fingerprints with eth_call against the registry contract.
type EthereumAdapter struct {
	client   *ethclient.Client
	contract common.Address
	// configErr is set at construction so a misconfigured adapter fails before any I/O.
	configErr error
}

// NewEthereumAdapter builds the adapter. It never fails: an unset endpoint, an
// endpoint the RPC client cannot speak to, or a malformed contract address
// (including placeholders such as "0x...") makes every read return a
// misconfigured ErrUnavailable instead.
func NewEthereumAdapter(cfg EthereumConfig) *EthereumAdapter {
	a := &EthereumAdapter{}

	contract, err := models.ParseAddress(cfg.ContractAddress)
	switch {
	case cfg.RPCURL == "":
		a.configErr = NewError(CategoryMisconfigured, "ledger RPC URL is not configured", nil)
		return a
	case err != nil:
		a.configErr = NewError(CategoryMisconfigured, fmt.Sprintf("contract address %q is not valid", cfg.ContractAddress), nil)
		return a
	}
	a.contract = common.HexToAddress(contract.String())

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	rpcClient, err := rpc.DialOptions(context.Background(), cfg.RPCURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		a.configErr = NewError(CategoryMisconfigured, fmt.Sprintf("ledger RPC URL %q is not usable", cfg.RPCURL), err)
		return a
	}
	a.client = ethclient.NewClient(rpcClient)
	return a
}

// Configured reports whether reads can reach the network at all.
func (a *EthereumAdapter) Configured() bool { return a.configErr == nil }

// ReadFingerprint calls getHash(address). An empty string means nothing is anchored.
func (a *EthereumAdapter) ReadFingerprint(ctx context.Context, address models.Address) (Reading, error) {
	if a.configErr != nil {
		return Reading{}, a.configErr
	}

	data, err := EncodeGetHashCall(address)
	if err != nil {
		return Reading{}, NewError(CategoryInternal, "encode call", err)
	}

	result, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &a.contract, Data: data}, nil)
	if err != nil {
		return Reading{}, classify(ctx, "eth_call", err)
	}

	fingerprint, err := DecodeString(result)
	if err != nil {
		return Reading{}, NewError(CategoryBadData, "decode getHash result", err)
	}
	if fingerprint == "" {
		return Absent, nil
	}
	return Reading{Fingerprint: fingerprint, Anchored: true}, nil
}

// Health asks the node for its chain id.
func (a *EthereumAdapter) Health(ctx context.Context) error {
	if a.configErr != nil {
		return a.configErr
	}
	if _, err := a.client.ChainID(ctx); err != nil {
		return classify(ctx, "eth_chainId", err)
	}
	return nil
}

// Close releases the RPC client.
func (a *EthereumAdapter) Close() {
	if a.client != nil {
		a.client.Close()
	}
}

// classify maps an RPC client error onto the oracle error taxonomy.
func classify(ctx context.Context, method string, err error) error {
	var (
		httpErr   rpc.HTTPError
		rpcErr    rpc.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return NewError(CategoryTimeout, method+" timed out", err)
	case errors.As(err, &httpErr):
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return NewError(CategoryRateLimited, "ledger node rate limited", err)
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return NewError(CategoryNodeError, fmt.Sprintf("ledger node returned %d", httpErr.StatusCode), err)
		default:
			return NewError(CategoryRPCError, fmt.Sprintf("ledger node returned %d", httpErr.StatusCode), err)
		}
	case errors.As(err, &rpcErr):
		return NewError(CategoryRPCError, fmt.Sprintf("%s: %s (code %d)", method, rpcErr.Error(), rpcErr.ErrorCode()), err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, rpc.ErrNoResult):
		return NewError(CategoryBadData, "malformed "+method+" response", err)
	default:
		return NewError(CategoryTransport, method+" request failed", err)
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
