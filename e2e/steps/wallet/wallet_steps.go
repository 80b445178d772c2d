package wallet

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	GET(path string, headers map[string]string) error
	Ledger(method, path string, body any) error
	GetResponseField(path string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte

	GetAddress() string
	SetAddress(address string)
	NewAddress() string
	GetAdminToken() string
	GetSessionToken() string
	SetSessionToken(token string)
	GetAdminUsername() string
	GetAdminPassword() string
}

// RegisterSteps registers wallet registration, ledger fixture and admin steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &walletSteps{tc: tc}

	// Wallet claims
	ctx.Step(`^a fresh wallet address$`, steps.freshAddress)
	ctx.Step(`^I register the wallet with fingerprint "([^"]*)"$`, steps.registerWallet)
	ctx.Step(`^I register the wallet in upper case with fingerprint "([^"]*)"$`, steps.registerWalletUpper)
	ctx.Step(`^I register address "([^"]*)" with fingerprint "([^"]*)"$`, steps.registerAddress)
	ctx.Step(`^I look up the wallet$`, steps.lookUpWallet)
	ctx.Step(`^the response field "([^"]*)" should equal the wallet address$`, steps.fieldShouldEqualAddress)

	// Ledger fixtures
	ctx.Step(`^the ledger anchors fingerprint "([^"]*)" for the wallet$`, steps.ledgerAnchors)
	ctx.Step(`^the ledger has nothing anchored for the wallet$`, steps.ledgerClears)
	ctx.Step(`^the ledger fails with "([^"]*)"$`, steps.ledgerFails)

	// Admin
	ctx.Step(`^I verify the wallet as admin$`, steps.verifyWithStaticToken)
	ctx.Step(`^I verify the wallet without credentials$`, steps.verifyWithoutCredentials)
	ctx.Step(`^I verify the wallet with token "([^"]*)"$`, steps.verifyWithToken)
	ctx.Step(`^I log in as admin$`, steps.loginAsAdmin)
	ctx.Step(`^I log in as admin with password "([^"]*)"$`, steps.loginWithPassword)
	ctx.Step(`^I save the session token$`, steps.saveSessionToken)
	ctx.Step(`^I verify the wallet with the session token$`, steps.verifyWithSessionToken)
	ctx.Step(`^I list wallets as admin$`, steps.listWallets)
	ctx.Step(`^the wallet list should contain the wallet$`, steps.listShouldContainWallet)
	ctx.Step(`^I request wallet stats as admin$`, steps.requestStats)

	ctx.After(func(c context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		// Failure injection is node-wide; never leak it into the next scenario.
		if resetErr := tc.Ledger(http.MethodPut, "/failure", map[string]string{"mode": ""}); resetErr != nil && err == nil {
			return c, resetErr
		}
		return c, nil
	})
}

type walletSteps struct {
	tc TestContext
}

func (s *walletSteps) staticAuth() map[string]string {
	return map[string]string{"X-Admin-Token": s.tc.GetAdminToken()}
}

func (s *walletSteps) freshAddress(ctx context.Context) error {
	s.tc.SetAddress(s.tc.NewAddress())
	return nil
}

func (s *walletSteps) registerWallet(ctx context.Context, fingerprint string) error {
	return s.registerAddress(ctx, s.tc.GetAddress(), fingerprint)
}

func (s *walletSteps) registerWalletUpper(ctx context.Context, fingerprint string) error {
	addr := s.tc.GetAddress()
	return s.registerAddress(ctx, "0x"+strings.ToUpper(strings.TrimPrefix(addr, "0x")), fingerprint)
}

func (s *walletSteps) registerAddress(ctx context.Context, address, fingerprint string) error {
	body := map[string]string{
		"address":     address,
		"fingerprint": fingerprint,
	}
	return s.tc.POST("/api/wallet/register", body, nil)
}

func (s *walletSteps) lookUpWallet(ctx context.Context) error {
	return s.tc.GET("/api/wallet/"+s.tc.GetAddress(), nil)
}

func (s *walletSteps) fieldShouldEqualAddress(ctx context.Context, field string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(value) != s.tc.GetAddress() {
		return fmt.Errorf("field %s: expected %s but got %v", field, s.tc.GetAddress(), value)
	}
	return nil
}

func (s *walletSteps) ledgerAnchors(ctx context.Context, fingerprint string) error {
	return s.tc.Ledger(http.MethodPut, "/fixtures/"+s.tc.GetAddress(), map[string]string{"fingerprint": fingerprint})
}

func (s *walletSteps) ledgerClears(ctx context.Context) error {
	return s.tc.Ledger(http.MethodDelete, "/fixtures/"+s.tc.GetAddress(), nil)
}

func (s *walletSteps) ledgerFails(ctx context.Context, mode string) error {
	return s.tc.Ledger(http.MethodPut, "/failure", map[string]string{"mode": mode})
}

func (s *walletSteps) verify(headers map[string]string) error {
	return s.tc.POST("/api/admin/verify", map[string]string{"address": s.tc.GetAddress()}, headers)
}

func (s *walletSteps) verifyWithStaticToken(ctx context.Context) error {
	return s.verify(s.staticAuth())
}

func (s *walletSteps) verifyWithoutCredentials(ctx context.Context) error {
	return s.verify(nil)
}

func (s *walletSteps) verifyWithToken(ctx context.Context, token string) error {
	return s.verify(map[string]string{"Authorization": "Bearer " + token})
}

func (s *walletSteps) loginAsAdmin(ctx context.Context) error {
	return s.loginWithPassword(ctx, s.tc.GetAdminPassword())
}

func (s *walletSteps) loginWithPassword(ctx context.Context, password string) error {
	body := map[string]string{
		"username": s.tc.GetAdminUsername(),
		"password": password,
	}
	return s.tc.POST("/api/admin/login", body, nil)
}

func (s *walletSteps) saveSessionToken(ctx context.Context) error {
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	str, ok := token.(string)
	if !ok || str == "" {
		return fmt.Errorf("token is not a non-empty string: %v", token)
	}
	s.tc.SetSessionToken(str)
	return nil
}

func (s *walletSteps) verifyWithSessionToken(ctx context.Context) error {
	return s.verify(map[string]string{"Authorization": "Bearer " + s.tc.GetSessionToken()})
}

func (s *walletSteps) listWallets(ctx context.Context) error {
	return s.tc.GET("/api/admin/wallets", s.staticAuth())
}

func (s *walletSteps) listShouldContainWallet(ctx context.Context) error {
	wallets, err := s.tc.GetResponseField("wallets")
	if err != nil {
		return err
	}
	list, ok := wallets.([]any)
	if !ok {
		return fmt.Errorf("wallets is not a list")
	}
	for _, w := range list {
		if obj, ok := w.(map[string]any); ok && obj["address"] == s.tc.GetAddress() {
			return nil
		}
	}
	return fmt.Errorf("wallet %s not in list of %d", s.tc.GetAddress(), len(list))
}

func (s *walletSteps) requestStats(ctx context.Context) error {
	return s.tc.GET("/api/admin/stats", s.staticAuth())
}
