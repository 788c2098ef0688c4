package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "REROUTE_DEBOUNCE", "STOP_COMPLETION_RADIUS_KM", "ORACLE_TIMEOUT", "KAFKA_BROKERS", "LOG_LEVEL", "REROUTE_LOCAL_HEURISTIC"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.RerouteDebounce != 800*time.Millisecond {
		t.Errorf("RerouteDebounce = %v, want 800ms", cfg.RerouteDebounce)
	}
	if cfg.StopCompletionRadiusKm != 0.35 {
		t.Errorf("StopCompletionRadiusKm = %v, want 0.35", cfg.StopCompletionRadiusKm)
	}
	if cfg.OracleTimeout != 8*time.Second {
		t.Errorf("OracleTimeout = %v, want 8s", cfg.OracleTimeout)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Errorf("KafkaBrokers = %v, want empty", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.RerouteLocalHeuristic {
		t.Errorf("RerouteLocalHeuristic should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REROUTE_DEBOUNCE", "250ms")
	t.Setenv("STOP_COMPLETION_RADIUS_KM", "0.5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ORACLE_TIMEOUT", "not-a-duration")
	t.Setenv("REROUTE_LOCAL_HEURISTIC", "true")

	cfg := Load()
	if cfg.RerouteDebounce != 250*time.Millisecond {
		t.Errorf("RerouteDebounce = %v", cfg.RerouteDebounce)
	}
	if cfg.StopCompletionRadiusKm != 0.5 {
		t.Errorf("StopCompletionRadiusKm = %v", cfg.StopCompletionRadiusKm)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.OracleTimeout != 8*time.Second {
		t.Errorf("invalid ORACLE_TIMEOUT should fall back, got %v", cfg.OracleTimeout)
	}
	if !cfg.RerouteLocalHeuristic {
		t.Errorf("RerouteLocalHeuristic = false, want true")
	}
}
