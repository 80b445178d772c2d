// Command ledger-node is a development stand-in for an Ethereum JSON-RPC node
// serving the fingerprint registry contract. Fixtures come from
// LEDGER_FIXTURES ("0xaddr=fingerprint,...") and can be changed at runtime
// through PUT/DELETE /fixtures/{address}; PUT /failure injects faults.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"walletverify/internal/platform/logger"
	"walletverify/internal/wallet/models"
)

const (
	defaultPort     = "8545"
	defaultContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
)

func main() {
	log := logger.New(getEnv("LOG_LEVEL", "info"))

	contract, err := models.ParseAddress(getEnv("CONTRACT_ADDRESS", defaultContract))
	if err != nil {
		log.Error("invalid CONTRACT_ADDRESS", "error", err)
		os.Exit(1)
	}
	latency := time.Duration(getEnvInt(log, "LATENCY_MS", 0)) * time.Millisecond

	node := NewNode(contract, latency, log)
	loaded, err := loadFixtures(node, os.Getenv("LEDGER_FIXTURES"))
	if err != nil {
		log.Error("invalid LEDGER_FIXTURES", "error", err)
		os.Exit(1)
	}
	if mode := FailureMode(os.Getenv("FAILURE_MODE")); mode != FailNone {
		if !mode.valid() {
			log.Error("invalid FAILURE_MODE", "mode", string(mode))
			os.Exit(1)
		}
		node.SetFailure(mode)
	}

	port := getEnv("PORT", defaultPort)
	log.Info("ledger node starting",
		"port", port,
		"contract", contract,
		"fixtures", loaded,
		"latency", latency,
	)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           node.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		log.Error("ledger node stopped", "error", err)
		os.Exit(1)
	}
}

// loadFixtures parses "addr=fingerprint" pairs separated by commas.
func loadFixtures(node *Node, raw string) (int, error) {
	n := 0
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		rawAddr, fingerprint, ok := strings.Cut(pair, "=")
		if !ok {
			return n, &fixtureError{pair: pair}
		}
		addr, err := models.ParseAddress(strings.TrimSpace(rawAddr))
		if err != nil {
			return n, &fixtureError{pair: pair}
		}
		node.Anchor(addr, strings.TrimSpace(fingerprint))
		n++
	}
	return n, nil
}

type fixtureError struct{ pair string }

func (e *fixtureError) Error() string { return "malformed fixture " + strconv.Quote(e.pair) }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(log *slog.Logger, key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn("invalid integer, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return n
}
