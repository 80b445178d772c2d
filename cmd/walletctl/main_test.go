package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"walletverify/internal/admin/token"
	"walletverify/internal/platform/config"
	"walletverify/pkg/secrets"
	"walletverify/pkg/testutil"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out, errOut bytes.Buffer
	app := &cli.App{
		Name:           "walletctl",
		Writer:         &out,
		ErrWriter:      &errOut,
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server"},
			&cli.StringFlag{Name: "token"},
			&cli.StringFlag{Name: "admin-token"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second},
			&cli.BoolFlag{Name: "json"},
		},
		Commands: commands(),
	}
	err := app.Run(append([]string{"walletctl"}, args...))
	return out.String(), err
}

func TestRegisterSendsClaim(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wallet/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"wallet registered","wallet":{"address":"0xabc","fingerprint":"Qm1","fingerprint_format":"cidv0","verified":false}}`))
	}))
	defer srv.Close()

	out, err := runApp(t, "--server", srv.URL, "register", "0xABC", "Qm1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"address": "0xABC", "fingerprint": "Qm1"}, got)
	assert.Contains(t, out, "wallet registered")
	assert.Contains(t, out, "Qm1 (cidv0)")
}

func TestErrorEnvelopeBecomesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_anchored","error_description":"address has no ledger fingerprint"}`))
	}))
	defer srv.Close()

	_, err := runApp(t, "--server", srv.URL, "--admin-token", "t", "verify", testutil.TestWallets.Address1.String())
	require.Error(t, err)
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "not_anchored", apiErr.Code)
}

func TestAdminCredentialsAreSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt-value", r.Header.Get("Authorization"))
		assert.Equal(t, "static-value", r.Header.Get("X-Admin-Token"))
		_, _ = w.Write([]byte(`{"total_wallets":3,"verified_wallets":1,"timestamp":"2026-03-01T12:00:00Z"}`))
	}))
	defer srv.Close()

	out, err := runApp(t, "--server", srv.URL, "--token", "jwt-value", "--admin-token", "static-value", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total:    3")
	assert.Contains(t, out, "verified: 1")
}

func TestListPrintsTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"count":2,"wallets":[
			{"address":"0x2","fingerprint":"bafy2","fingerprint_format":"cidv1","verified":true,"updated_at":"2026-03-02T00:00:00Z"},
			{"address":"0x1","fingerprint":"Qm1","fingerprint_format":"cidv0","verified":false,"updated_at":"2026-03-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	out, err := runApp(t, "--server", srv.URL, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "0x2"))
	assert.Contains(t, lines[3], "2 wallet(s)")
}

func TestVerifyMismatchExitsNonZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"matched":false,"message":"fingerprint does not match the ledger","local_fingerprint":"QmA","remote_fingerprint":"QmB"}`))
	}))
	defer srv.Close()

	out, err := runApp(t, "--server", srv.URL, "verify", testutil.TestWallets.Address1.String())
	require.Error(t, err)
	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.ExitCode())
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "ledger: QmB")
}

func TestTokenIsAcceptedByTheServerValidator(t *testing.T) {
	out, err := runApp(t, "token", "--subject", "ops", "--signing-key", "k1")
	require.NoError(t, err)

	claims, err := token.New("k1", "walletverify", "walletverify-admin", time.Hour).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)

	_, err = token.New(config.DevSigningKey, "walletverify", "walletverify-admin", time.Hour).Validate(strings.TrimSpace(out))
	assert.Error(t, err)
}

func TestSelector(t *testing.T) {
	out, err := runApp(t, "selector", testutil.TestWallets.Address1.String())
	require.NoError(t, err)
	assert.Contains(t, out, "selector:  0x1da0b8fc")
	assert.Contains(t, out, "calldata:  0x1da0b8fc000000000000000000000000")

	_, err = runApp(t, "selector", "0xNOTHEX")
	assert.Error(t, err)
}

func TestSecretHash(t *testing.T) {
	out, err := runApp(t, "secret", "hash", "hunter22")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.True(t, secrets.IsHash(hash))
	assert.NoError(t, secrets.Verify("hunter22", hash))
}

func TestSecretGenerate(t *testing.T) {
	out, err := runApp(t, "secret", "generate")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 43)
}
