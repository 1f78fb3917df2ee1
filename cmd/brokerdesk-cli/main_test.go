package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"brokerdesk/internal/broker"
	"brokerdesk/internal/config"
)

type harness struct {
	sim    *broker.Simulator
	opened int
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    map[string]string
}

func newHarness() *harness {
	return &harness{
		sim: broker.NewSimulator(),
		env: map[string]string{
			config.EnvKeyID:     "key",
			config.EnvSecretKey: "secret",
		},
	}
}

func (h *harness) run(args ...string) int {
	open := func(config.Provider, config.Credentials) (*broker.Session, error) {
		h.opened++
		return broker.NewSession(config.ProviderSimulator, h.sim), nil
	}
	return run(append([]string{"brokerdesk-cli"}, args...), &h.stdout, &h.stderr, config.MapLookup(h.env), open)
}

func TestAccount(t *testing.T) {
	h := newHarness()

	code := h.run("account")
	assert.Equal(t, 0, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "ACTIVE")
	assert.Contains(t, h.stdout.String(), "$100,000.00")
}

func TestMissingKeyID(t *testing.T) {
	h := newHarness()
	delete(h.env, config.EnvKeyID)

	code := h.run("account")
	assert.Equal(t, 1, code)
	assert.Equal(t, 0, h.opened, "no session may be opened without credentials")
	assert.Contains(t, h.stderr.String(), "environment variable API_KEY_ID not set")
	assert.Empty(t, h.stdout.String())
}

func TestProviderFailure(t *testing.T) {
	h := newHarness()
	h.sim.FailWith(http.StatusForbidden, "insufficient buying power")

	code := h.run("orders", "place", "--symbol", "AAPL", "--qty", "10", "--side", "buy")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.stderr.String(), "ERROR")
	assert.Contains(t, h.stderr.String(), "insufficient buying power")
}

func TestPlaceOrder(t *testing.T) {
	h := newHarness()

	code := h.run("orders", "place", "--symbol", "aapl", "--qty", "10", "--side", "buy")
	assert.Equal(t, 0, code, h.stderr.String())
	out := h.stdout.String()
	assert.Contains(t, out, "Order submitted successfully!")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "gtc")
}

func TestListOrdersEmpty(t *testing.T) {
	h := newHarness()

	code := h.run("orders", "list", "--status", "closed")
	assert.Equal(t, 0, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "No orders found with status 'closed'.")
}

func TestValidationExitCode(t *testing.T) {
	tests := [][]string{
		{"orders", "list", "--limit", "0"},
		{"orders", "list", "--status", "pending"},
		{"orders", "place", "--symbol", "AAPL", "--qty", "0", "--side", "buy"},
		{"orders", "place", "--symbol", "AAPL", "--qty", "1", "--side", "hold"},
		{"orders", "place", "--symbol", "AAPL"},
	}
	for _, args := range tests {
		h := newHarness()
		code := h.run(args...)
		assert.Equal(t, 2, code, "%v", args)
		assert.Equal(t, 0, h.opened, "%v", args)
	}
}

func TestPositionsEmpty(t *testing.T) {
	h := newHarness()

	code := h.run("positions")
	assert.Equal(t, 0, code)
	assert.Contains(t, h.stdout.String(), "No open positions found.")
}

func TestLogFormatFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brokerdesk.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n  format: json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := newHarness()

	code := h.run("--config", path, "account")
	assert.Equal(t, 0, code, h.stderr.String())
	assert.Contains(t, h.stderr.String(), `"msg":"session opened"`)
}

func TestLogFormatDefaultsToText(t *testing.T) {
	h := newHarness()

	code := h.run("--log-level", "debug", "account")
	assert.Equal(t, 0, code)
	assert.Contains(t, h.stderr.String(), "msg=\"session opened\"")
}
