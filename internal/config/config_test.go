package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

var envVars = []string{
	"EDGEWORTH_PORT", "EDGEWORTH_METRICS_PORT", "EDGEWORTH_RATE_LIMIT", "EDGEWORTH_ADMIN_TOKEN",
	"EDGEWORTH_DATABASE_URL", "EDGEWORTH_HERMES_URL", "EDGEWORTH_LOG_LEVEL", "EDGEWORTH_LOG_FORMAT",
	"EDGEWORTH_SOLVER_MAX_ITER", "EDGEWORTH_SOLVER_TOL", "EDGEWORTH_SOLVER_BOUND_EPSILON",
	"EDGEWORTH_ALPHA", "EDGEWORTH_BETA", "EDGEWORTH_W1A", "EDGEWORTH_W2A",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.RateLimit != 120 {
		t.Errorf("expected rate limit 120, got %d", cfg.Server.RateLimit)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Database.URL != "" {
		t.Errorf("expected no database by default, got %s", cfg.Database.URL)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults %+v", cfg.Logging)
	}

	e := cfg.Economy
	if e.W1A != 0.8 || e.W2A != 0.3 || e.Alpha != 4 || e.Beta != 4 {
		t.Errorf("unexpected economy defaults %+v", e)
	}

	opts := cfg.SolverOptions()
	if opts.MaxIter != 100 || opts.Tol != 1e-6 || opts.BoundEpsilon != 1e-6 {
		t.Errorf("unexpected solver defaults %+v", opts)
	}
	if cfg.Render.Format != "svg" || cfg.Render.WidthInches != 6 {
		t.Errorf("unexpected render defaults %+v", cfg.Render)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("EDGEWORTH_PORT", "9000")
	t.Setenv("EDGEWORTH_METRICS_PORT", "9001")
	t.Setenv("EDGEWORTH_ADMIN_TOKEN", "secret-token")
	t.Setenv("EDGEWORTH_DATABASE_URL", "postgres://localhost/edgeworth_test")
	t.Setenv("EDGEWORTH_HERMES_URL", "nats://nats:4222")
	t.Setenv("EDGEWORTH_LOG_LEVEL", "debug")
	t.Setenv("EDGEWORTH_SOLVER_MAX_ITER", "50")
	t.Setenv("EDGEWORTH_SOLVER_TOL", "1e-8")
	t.Setenv("EDGEWORTH_ALPHA", "2.5")
	t.Setenv("EDGEWORTH_W2A", "0.5")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/edgeworth_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel())
	}
	if cfg.Solver.MaxIter != 50 || cfg.Solver.Tol != 1e-8 {
		t.Errorf("unexpected solver %+v", cfg.Solver)
	}
	if cfg.Economy.Alpha != 2.5 || cfg.Economy.W2A != 0.5 {
		t.Errorf("unexpected economy %+v", cfg.Economy)
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("EDGEWORTH_PORT", "not-a-number")
	t.Setenv("EDGEWORTH_BETA", "four")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8700 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Economy.Beta != 4 {
		t.Errorf("expected default beta, got %f", cfg.Economy.Beta)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "edgeworth.yaml")
	data := []byte(`
server:
  port: 7000
economy:
  w1A: 0.5
  w2A: 0.5
  alpha: 2
  beta: 3
solver:
  max_iter: 30
logging:
  format: text
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port to survive, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Economy.Beta != 3 || cfg.Economy.W1A != 0.5 {
		t.Errorf("unexpected economy %+v", cfg.Economy)
	}
	if cfg.Solver.MaxIter != 30 || cfg.Solver.Tol != 1e-6 {
		t.Errorf("unexpected solver %+v", cfg.Solver)
	}
	if cfg.NewLogger() == nil {
		t.Error("expected logger")
	}

	// Env wins over file.
	t.Setenv("EDGEWORTH_PORT", "7100")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("expected env port 7100, got %d", cfg.Server.Port)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}

	t.Setenv("EDGEWORTH_W1A", "1")
	if _, err := Load(""); err == nil {
		t.Error("expected validation error for w1A=1")
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "warning": slog.LevelWarn,
		"error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := &Config{Logging: LoggingConfig{Level: in}}
		if got := cfg.LogLevel(); got != want {
			t.Errorf("LogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
