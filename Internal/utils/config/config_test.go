package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DHAN_ACCESS_TOKEN", "")
	t.Setenv("DHAN_API_KEY", "")
	t.Setenv("DHAN_CLIENT_ID", "")

	cfg, err := Load(writeConfig(t, "broker:\n  name: demo\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Risk.CapitalPerTrade != 10000 {
		t.Errorf("capital_per_trade = %f, want default 10000", cfg.Risk.CapitalPerTrade)
	}
	if cfg.Risk.MaxPositions != 5 {
		t.Errorf("max_positions = %d, want default 5", cfg.Risk.MaxPositions)
	}
	if cfg.Risk.ConfirmationCandles != 1 {
		t.Errorf("confirmation_candles = %d, want default 1", cfg.Risk.ConfirmationCandles)
	}
	if cfg.Risk.OrderType != "LIMIT" {
		t.Errorf("order_type = %s, want default LIMIT", cfg.Risk.OrderType)
	}
	if cfg.Broker.Name != "demo" {
		t.Errorf("broker = %s, want demo", cfg.Broker.Name)
	}
	if cfg.Broker.TrailingJump != 10 {
		t.Errorf("trailing_jump = %f, want default 10", cfg.Broker.TrailingJump)
	}
}

func TestLoadOverridesFromYAML(t *testing.T) {
	path := writeConfig(t, `
risk:
  capital_per_trade: 25000
  confirmation_candles: 3
  order_type: MARKET
broker:
  name: demo
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Risk.CapitalPerTrade != 25000 {
		t.Errorf("capital_per_trade = %f, want 25000", cfg.Risk.CapitalPerTrade)
	}
	if cfg.Risk.ConfirmationCandles != 3 {
		t.Errorf("confirmation_candles = %d, want 3", cfg.Risk.ConfirmationCandles)
	}
	if cfg.OrderKind() != "MARKET" {
		t.Errorf("order kind = %s, want MARKET", cfg.OrderKind())
	}
}

func TestLoadRejectsInvalidRisk(t *testing.T) {
	path := writeConfig(t, "risk:\n  capital_per_trade: -5\n")
	_, err := Load(path)

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("err = %v, want ConfigurationError", err)
	}
}

func TestLoadDhanWithoutTokenIsFatal(t *testing.T) {
	t.Setenv("DHAN_ACCESS_TOKEN", "")
	t.Setenv("DHAN_API_KEY", "")
	t.Setenv("DHAN_CLIENT_ID", "")

	path := writeConfig(t, "broker:\n  name: dhan\n")
	_, err := Load(path)

	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want ConfigurationError for missing credentials", err)
	}
}

func TestClientIDFromToken(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"dhanClientId": "1000000001",
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("building test token: %v", err)
	}

	id, err := ClientIDFromToken(token)
	if err != nil {
		t.Fatalf("ClientIDFromToken failed: %v", err)
	}
	if id != "1000000001" {
		t.Errorf("client id = %s, want 1000000001", id)
	}
}

func TestClientIDFromTokenMissingClaim(t *testing.T) {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "nobody",
	}).SignedString([]byte("secret"))

	if _, err := ClientIDFromToken(token); err == nil {
		t.Error("expected error for token without dhanClientId")
	}
}

func TestLoadDhanClientIDFromToken(t *testing.T) {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"dhanClientId": "1000000001",
	}).SignedString([]byte("secret"))
	t.Setenv("DHAN_ACCESS_TOKEN", token)
	t.Setenv("DHAN_CLIENT_ID", "")

	cfg, err := Load(writeConfig(t, "broker:\n  name: dhan\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Broker.ClientID != "1000000001" {
		t.Errorf("client id = %s, want extracted from token", cfg.Broker.ClientID)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}
