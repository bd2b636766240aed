// Package config loads the gateway daemon's runtime settings from the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGatewayListen = "0.0.0.0:8090"
	defaultAdminListen   = "127.0.0.1:8091"
	defaultStateDir      = "~/.btms-gateway"
	defaultDecisionQueue = "decisions"
	defaultErrorQueue    = "errors"
	defaultHTTPTimeout   = 30 * time.Second
	defaultPollInterval  = time.Second
	defaultMaxAttempts   = 3
)

// Config captures runtime settings for the gateway daemon.
type Config struct {
	GatewayListen string
	AdminListen   string
	StateDir      string
	RoutesPath    string
	QueueDBPath   string

	DecisionQueue string
	ErrorQueue    string

	HTTPTimeout  time.Duration
	PollInterval time.Duration
	MaxAttempts  int

	// CutoverEnabled trusts the modernized system as authoritative and
	// stops releasing Comparer-confirmed answers to the legacy partner.
	CutoverEnabled bool

	SoapUsername string
	SoapPassword string
}

// FromEnv loads configuration using environment variables with defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		GatewayListen: getenv("BTMS_GATEWAY_LISTEN", defaultGatewayListen),
		AdminListen:   getenv("BTMS_ADMIN_LISTEN", defaultAdminListen),
		StateDir:      expandPath(getenv("BTMS_STATE_DIR", defaultStateDir)),
		RoutesPath:    expandPath(getenv("BTMS_ROUTES_PATH", "")),
		QueueDBPath:   expandPath(getenv("BTMS_QUEUE_DB", "")),
		DecisionQueue: getenv("BTMS_DECISION_QUEUE", defaultDecisionQueue),
		ErrorQueue:    getenv("BTMS_ERROR_QUEUE", defaultErrorQueue),
		SoapUsername:  strings.TrimSpace(os.Getenv("BTMS_SOAP_USERNAME")),
		SoapPassword:  strings.TrimSpace(os.Getenv("BTMS_SOAP_PASSWORD")),
	}

	if cfg.GatewayListen = strings.TrimSpace(cfg.GatewayListen); cfg.GatewayListen == "" {
		return Config{}, fmt.Errorf("gateway listen address required")
	}
	if cfg.AdminListen = strings.TrimSpace(cfg.AdminListen); cfg.AdminListen == "" {
		cfg.AdminListen = cfg.GatewayListen
	}
	if cfg.StateDir == "" {
		return Config{}, fmt.Errorf("state directory required")
	}
	if cfg.RoutesPath == "" {
		cfg.RoutesPath = filepath.Join(cfg.StateDir, "routes.yaml")
	}
	if cfg.QueueDBPath == "" {
		cfg.QueueDBPath = filepath.Join(cfg.StateDir, "queue.db")
	}
	if cfg.DecisionQueue == cfg.ErrorQueue {
		return Config{}, fmt.Errorf("decision and error queues must differ")
	}

	var err error
	if cfg.HTTPTimeout, err = getduration("BTMS_HTTP_TIMEOUT", defaultHTTPTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = getduration("BTMS_POLL_INTERVAL", defaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = getint("BTMS_MAX_ATTEMPTS", defaultMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("max attempts must be positive")
	}
	if cfg.CutoverEnabled, err = getbool("BTMS_CUTOVER_ENABLED", false); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func getint(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getbool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}
