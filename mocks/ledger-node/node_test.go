package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/oracle"
	"walletverify/pkg/testutil"
)

const contract = models.Address(defaultContract)

func newNode(t *testing.T) (*Node, *oracle.EthereumAdapter, *httptest.Server) {
	t.Helper()
	node := NewNode(contract, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(node.Routes())
	t.Cleanup(srv.Close)
	adapter := oracle.NewEthereumAdapter(oracle.EthereumConfig{
		RPCURL:          srv.URL,
		ContractAddress: defaultContract,
		Timeout:         time.Second,
	})
	return node, adapter, srv
}

func TestNodeServesAnchoredFingerprints(t *testing.T) {
	node, adapter, _ := newNode(t)
	addr := testutil.TestWallets.Address1
	ctx := context.Background()

	reading, err := adapter.ReadFingerprint(ctx, addr)
	require.NoError(t, err)
	assert.False(t, reading.Anchored)

	node.Anchor(addr, testutil.TestWallets.Fingerprint2)
	reading, err = adapter.ReadFingerprint(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, oracle.Reading{Fingerprint: testutil.TestWallets.Fingerprint2, Anchored: true}, reading)

	node.Anchor(addr, "")
	reading, err = adapter.ReadFingerprint(ctx, addr)
	require.NoError(t, err)
	assert.False(t, reading.Anchored)

	require.NoError(t, adapter.Health(ctx))
}

func TestNodeOtherContractHasNoCode(t *testing.T) {
	node, _, srv := newNode(t)
	node.Anchor(testutil.TestWallets.Address1, "Qm1")

	other := oracle.NewEthereumAdapter(oracle.EthereumConfig{
		RPCURL:          srv.URL,
		ContractAddress: "0x0000000000000000000000000000000000000001",
	})
	reading, err := other.ReadFingerprint(context.Background(), testutil.TestWallets.Address1)
	require.NoError(t, err)
	assert.False(t, reading.Anchored)
}

func TestNodeAcceptsLegacyDataField(t *testing.T) {
	node, _, srv := newNode(t)
	addr := testutil.TestWallets.Address1
	node.Anchor(addr, "QmLegacy")

	data, err := oracle.EncodeGetHashCall(addr)
	require.NoError(t, err)
	body := `{"jsonrpc":"2.0","id":7,"method":"eth_call","params":[{"to":"` + defaultContract + `","data":"` + hexutil.Encode(data) + `"},"latest"]}`
	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out struct {
		ID     int    `json:"id"`
		Result string `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 7, out.ID)
	raw, err := hexutil.Decode(out.Result)
	require.NoError(t, err)
	fingerprint, err := oracle.DecodeString(raw)
	require.NoError(t, err)
	assert.Equal(t, "QmLegacy", fingerprint)
}

func TestNodeFailureModes(t *testing.T) {
	cases := []struct {
		mode     FailureMode
		category oracle.Category
	}{
		{FailRevert, oracle.CategoryRPCError},
		{FailServerError, oracle.CategoryNodeError},
		{FailRateLimit, oracle.CategoryRateLimited},
		{FailGarbage, oracle.CategoryBadData},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			node, adapter, _ := newNode(t)
			node.SetFailure(tc.mode)

			_, err := adapter.ReadFingerprint(context.Background(), testutil.TestWallets.Address1)
			var oerr *oracle.Error
			require.ErrorAs(t, err, &oerr)
			assert.Equal(t, tc.category, oerr.Category)
		})
	}

	t.Run("hang", func(t *testing.T) {
		node, adapter, _ := newNode(t)
		node.SetFailure(FailHang)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := adapter.ReadFingerprint(ctx, testutil.TestWallets.Address1)
		var oerr *oracle.Error
		require.ErrorAs(t, err, &oerr)
		assert.Equal(t, oracle.CategoryTimeout, oerr.Category)
	})
}

func TestFixtureEndpoints(t *testing.T) {
	_, adapter, srv := newNode(t)
	addr := testutil.TestWallets.Address2

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/fixtures/"+addr.String(), strings.NewReader(`{"fingerprint":"QmFixture"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	reading, err := adapter.ReadFingerprint(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, "QmFixture", reading.Fingerprint)

	req, err = http.NewRequest(http.MethodPut, srv.URL+"/failure", strings.NewReader(`{"mode":"melt"}`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLoadFixtures(t *testing.T) {
	node := NewNode(contract, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n, err := loadFixtures(node, " "+testutil.TestWallets.Address1.String()+"=Qm1 , "+testutil.TestWallets.Address2.String()+"=bafy2,")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	fp, _ := node.lookup(testutil.TestWallets.Address1)
	assert.Equal(t, "Qm1", fp)

	_, err = loadFixtures(node, "not-a-pair")
	assert.Error(t, err)
}
