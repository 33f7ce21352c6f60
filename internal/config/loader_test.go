package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"ROUTECRM_HTTP_PORT",
			"ROUTECRM_SQLITE_DSN",
			"ROUTECRM_TIMEZONE",
			"ROUTECRM_LOOKBACK_DAYS",
			"ROUTECRM_HORIZON_DAYS",
			"ROUTECRM_TOUR_CACHE_SIZE",
			"ROUTECRM_SUGGESTION_HORIZON",
			"ROUTECRM_LOG_FORMAT",
			"ROUTECRM_LOG_LEVEL",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:routecrm.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.Timezone != "Europe/Berlin" {
			t.Fatalf("unexpected default timezone: %q", cfg.Timezone)
		}
		if cfg.LookbackDays != 28 || cfg.HorizonDays != 28 {
			t.Fatalf("unexpected default windows: %d / %d", cfg.LookbackDays, cfg.HorizonDays)
		}
		if cfg.TourCacheSize != 256 {
			t.Fatalf("unexpected default cache size: %d", cfg.TourCacheSize)
		}
		if cfg.LogFormat != "text" || cfg.LogLevel != "info" {
			t.Fatalf("unexpected default logging config: %q / %q", cfg.LogFormat, cfg.LogLevel)
		}
	})

	t.Run("parses numeric and enumerated fields", func(t *testing.T) {
		t.Setenv("ROUTECRM_HTTP_PORT", "9090")
		t.Setenv("ROUTECRM_SQLITE_DSN", "file:/tmp/routecrm.db")
		t.Setenv("ROUTECRM_TIMEZONE", "Europe/Vienna")
		t.Setenv("ROUTECRM_LOOKBACK_DAYS", "14")
		t.Setenv("ROUTECRM_HORIZON_DAYS", "42")
		t.Setenv("ROUTECRM_TOUR_CACHE_SIZE", "512")
		t.Setenv("ROUTECRM_SUGGESTION_HORIZON", "21")
		t.Setenv("ROUTECRM_LOG_FORMAT", "JSON")
		t.Setenv("ROUTECRM_LOG_LEVEL", "Debug")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:/tmp/routecrm.db" {
			t.Fatalf("unexpected DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.Timezone != "Europe/Vienna" {
			t.Fatalf("unexpected timezone: %q", cfg.Timezone)
		}
		if cfg.LookbackDays != 14 || cfg.HorizonDays != 42 {
			t.Fatalf("unexpected windows: %d / %d", cfg.LookbackDays, cfg.HorizonDays)
		}
		if cfg.TourCacheSize != 512 {
			t.Fatalf("unexpected cache size: %d", cfg.TourCacheSize)
		}
		if cfg.SuggestionHorizon != 21 {
			t.Fatalf("unexpected suggestion horizon: %d", cfg.SuggestionHorizon)
		}
		if cfg.LogFormat != "json" || cfg.LogLevel != "debug" {
			t.Fatalf("expected lowercased logging config, got %q / %q", cfg.LogFormat, cfg.LogLevel)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Setenv("ROUTECRM_HTTP_PORT", "zero")
		t.Setenv("ROUTECRM_LOOKBACK_DAYS", "-3")
		t.Setenv("ROUTECRM_LOG_FORMAT", "yaml")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected an error for invalid values")
		}
		for _, key := range []string{"ROUTECRM_HTTP_PORT", "ROUTECRM_LOOKBACK_DAYS", "ROUTECRM_LOG_FORMAT"} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected %s named in the error, got %q", key, err.Error())
			}
		}
	})
}
