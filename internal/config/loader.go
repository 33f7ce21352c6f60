package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures environment driven configuration values for the route CRM
// service.
type Config struct {
	HTTPPort          int
	SQLiteDSN         string
	Timezone          string
	LookbackDays      int
	HorizonDays       int
	TourCacheSize     int
	SuggestionHorizon int
	LogFormat         string
	LogLevel          string
}

// Load parses configuration values from the current process environment. All
// values are optional; the defaults run a single node setup out of the box.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		SQLiteDSN:         "file:routecrm.db?_foreign_keys=on",
		Timezone:          "Europe/Berlin",
		LookbackDays:      28,
		HorizonDays:       28,
		TourCacheSize:     256,
		SuggestionHorizon: 14,
		LogFormat:         "text",
		LogLevel:          "info",
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("ROUTECRM_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "ROUTECRM_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("ROUTECRM_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if tz := strings.TrimSpace(os.Getenv("ROUTECRM_TIMEZONE")); tz != "" {
		cfg.Timezone = tz
	}

	if value := strings.TrimSpace(os.Getenv("ROUTECRM_LOOKBACK_DAYS")); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			invalid = append(invalid, "ROUTECRM_LOOKBACK_DAYS")
		} else {
			cfg.LookbackDays = days
		}
	}

	if value := strings.TrimSpace(os.Getenv("ROUTECRM_HORIZON_DAYS")); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			invalid = append(invalid, "ROUTECRM_HORIZON_DAYS")
		} else {
			cfg.HorizonDays = days
		}
	}

	if value := strings.TrimSpace(os.Getenv("ROUTECRM_TOUR_CACHE_SIZE")); value != "" {
		size, err := strconv.Atoi(value)
		if err != nil || size <= 0 {
			invalid = append(invalid, "ROUTECRM_TOUR_CACHE_SIZE")
		} else {
			cfg.TourCacheSize = size
		}
	}

	if value := strings.TrimSpace(os.Getenv("ROUTECRM_SUGGESTION_HORIZON")); value != "" {
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			invalid = append(invalid, "ROUTECRM_SUGGESTION_HORIZON")
		} else {
			cfg.SuggestionHorizon = days
		}
	}

	if format := strings.TrimSpace(os.Getenv("ROUTECRM_LOG_FORMAT")); format != "" {
		switch strings.ToLower(format) {
		case "text", "json":
			cfg.LogFormat = strings.ToLower(format)
		default:
			invalid = append(invalid, "ROUTECRM_LOG_FORMAT")
		}
	}

	if level := strings.TrimSpace(os.Getenv("ROUTECRM_LOG_LEVEL")); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "ROUTECRM_LOG_LEVEL")
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
