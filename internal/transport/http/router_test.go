package httptransport

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletverify/internal/admin"
	"walletverify/internal/admin/token"
	"walletverify/internal/platform/health"
	wallethandler "walletverify/internal/wallet/handler"
	"walletverify/internal/wallet/models"
	"walletverify/internal/wallet/oracle"
	"walletverify/internal/wallet/service"
	"walletverify/internal/wallet/store"
	"walletverify/pkg/testutil"
)

type fixedLedger map[models.Address]string

func (l fixedLedger) ReadFingerprint(_ context.Context, addr models.Address) (oracle.Reading, error) {
	if f, ok := l[addr]; ok {
		return oracle.Reading{Fingerprint: f, Anchored: true}, nil
	}
	return oracle.Absent, nil
}

func newTestRouter(t *testing.T, ledger fixedLedger) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewInMemory()

	gate, err := admin.New(admin.Config{Username: "ops", Password: "pw"},
		token.New("router-test-key", "walletverify", "walletverify-admin", time.Hour),
		admin.WithLogger(logger))
	require.NoError(t, err)

	router := NewRouter(Deps{
		Logger: logger,
		Wallets: wallethandler.New(
			service.NewRegistrationService(st, service.WithLogger(logger)),
			service.NewReconciler(st, ledger, service.WithLogger(logger)),
			logger,
		),
		AdminLogin: admin.NewHandler(gate, logger),
		Authorizer: gate,
		Health:     health.New("test"),
	})
	return router
}

func newTestServer(t *testing.T, ledger fixedLedger) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(t, ledger))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_RegisterLoginVerify(t *testing.T) {
	addr := testutil.TestWallets.Address1
	srv := newTestServer(t, fixedLedger{addr: testutil.TestWallets.Fingerprint1})

	resp := post(t, srv.URL+"/api/wallet/register",
		`{"address":"`+addr.String()+`","fingerprint":"`+testutil.TestWallets.Fingerprint1+`"}`, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = post(t, srv.URL+"/api/admin/verify", `{"address":"`+addr.String()+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, srv.URL+"/api/admin/login", `{"username":"ops","password":"pw"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login admin.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)

	resp = post(t, srv.URL+"/api/admin/verify", `{"address":"`+addr.String()+`"}`, login.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var verify wallethandler.VerifyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verify))
	assert.True(t, verify.Matched)
	require.NotNil(t, verify.Wallet)
	assert.True(t, verify.Wallet.Verified)
}

func TestRouter_RejectsNonJSONBodies(t *testing.T) {
	srv := newTestServer(t, fixedLedger{})

	resp, err := http.Post(srv.URL+"/api/wallet/register", "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRouter_RejectsOversizedBodies(t *testing.T) {
	router := newTestRouter(t, fixedLedger{})

	body := `{"address":"` + testutil.TestWallets.Address1.String() + `","fingerprint":"` + strings.Repeat("Q", 70<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_HealthIsPublic(t *testing.T) {
	srv := newTestServer(t, fixedLedger{})

	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv := newTestServer(t, fixedLedger{})

	resp, err := http.Get(srv.URL + "/api/wallets")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
