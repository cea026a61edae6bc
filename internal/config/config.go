package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Edgeworth/internal/economy"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Economy  economy.Params `yaml:"economy"`
	Solver   SolverConfig   `yaml:"solver"`
	Render   RenderConfig   `yaml:"render"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	RateLimit   int    `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type SolverConfig struct {
	MaxIter      int     `yaml:"max_iter"`
	Tol          float64 `yaml:"tol"`
	BoundEpsilon float64 `yaml:"bound_epsilon"`
}

type RenderConfig struct {
	WidthInches  float64 `yaml:"width_inches"`
	HeightInches float64 `yaml:"height_inches"`
	Format       string  `yaml:"format"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SolverOptions converts the solver section for economy.SolveDictator.
func (c *Config) SolverOptions() economy.SolverOptions {
	return economy.SolverOptions{
		MaxIter:      c.Solver.MaxIter,
		Tol:          c.Solver.Tol,
		BoundEpsilon: c.Solver.BoundEpsilon,
	}
}

// LogLevel parses Logging.Level, falling back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger from the logging section.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if strings.ToLower(c.Logging.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func defaults() *Config {
	sol := economy.DefaultSolverOptions()
	return &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			RateLimit:   120,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Economy: economy.DefaultParams(),
		Solver: SolverConfig{
			MaxIter:      sol.MaxIter,
			Tol:          sol.Tol,
			BoundEpsilon: sol.BoundEpsilon,
		},
		Render: RenderConfig{
			WidthInches:  6,
			HeightInches: 6,
			Format:       "svg",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Economy.Validate(); err != nil {
		return nil, fmt.Errorf("economy defaults: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	envInt("EDGEWORTH_PORT", &cfg.Server.Port)
	envInt("EDGEWORTH_METRICS_PORT", &cfg.Server.MetricsPort)
	envInt("EDGEWORTH_RATE_LIMIT", &cfg.Server.RateLimit)
	if v := os.Getenv("EDGEWORTH_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("EDGEWORTH_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("EDGEWORTH_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("EDGEWORTH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EDGEWORTH_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	envInt("EDGEWORTH_SOLVER_MAX_ITER", &cfg.Solver.MaxIter)
	envFloat("EDGEWORTH_SOLVER_TOL", &cfg.Solver.Tol)
	envFloat("EDGEWORTH_SOLVER_BOUND_EPSILON", &cfg.Solver.BoundEpsilon)
	envFloat("EDGEWORTH_ALPHA", &cfg.Economy.Alpha)
	envFloat("EDGEWORTH_BETA", &cfg.Economy.Beta)
	envFloat("EDGEWORTH_W1A", &cfg.Economy.W1A)
	envFloat("EDGEWORTH_W2A", &cfg.Economy.W2A)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
