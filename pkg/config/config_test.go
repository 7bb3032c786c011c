package config

import (
	"strings"
	"testing"
)

func TestDBConfigEnsureDSNKeepsExplicitDSN(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://u:p@localhost:5432/carts"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if cfg.DSN != "postgres://u:p@localhost:5432/carts" {
		t.Fatalf("dsn should be untouched, got %q", cfg.DSN)
	}
}

func TestDBConfigEnsureDSNBuildsFromLegacyParts(t *testing.T) {
	cfg := DBConfig{
		LegacyHost:     "db.internal",
		LegacyPort:     5432,
		LegacyUser:     "cart",
		LegacyPassword: "s3cret",
		LegacyName:     "marketcart",
		LegacySSLMode:  "disable",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	for _, fragment := range []string{"postgres://", "cart:s3cret@", "db.internal:5432", "/marketcart", "sslmode=disable"} {
		if !strings.Contains(cfg.DSN, fragment) {
			t.Fatalf("dsn %q missing %q", cfg.DSN, fragment)
		}
	}
}

func TestDBConfigEnsureDSNRequiresParts(t *testing.T) {
	cfg := DBConfig{LegacyHost: "db.internal"}
	if err := cfg.ensureDSN(); err == nil {
		t.Fatalf("expected error for missing user/name")
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	if !(AppConfig{Env: "DEV"}).IsDev() {
		t.Fatalf("DEV should count as dev")
	}
	if !(AppConfig{Env: "prod"}).IsProd() {
		t.Fatalf("prod should count as prod")
	}
	if (AppConfig{Env: "staging"}).IsProd() {
		t.Fatalf("staging should not count as prod")
	}
}
