// Package config loads this node's operational settings from the
// environment (via godotenv) into a validated, thread-safe singleton.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

// EnvConfig holds the node's operational settings: identity, username,
// listen ports, rendezvous parameters, and logging/queue tuning.
type EnvConfig struct {
	Username            string
	ListenTCPPort       int
	ListenQUICPort      int
	RendezvousAddr      string
	RendezvousNamespace string
	IdentityFile        string
	LogLevel            string
	LogFile             string
	EventQueueSize      int
	CommandQueueSize    int
}

// Config holds the loaded environment plus any warnings accumulated while
// defaulting or sanitizing values.
type Config struct {
	Env      EnvConfig
	warnings []string
	mu       sync.RWMutex
}

const (
	defaultRendezvousNamespace = "rendezvous"
	defaultIdentityFile        = "data/identity.key"
	defaultLogLevel            = "info"
	defaultLogFile             = "data/node.log"
	defaultEventQueueSize      = 32
	defaultCommandQueueSize    = 32
)

var (
	cfgInstance *Config
	cfgDone     bool
)

// Load reads envPath (a .env file) and populates the global singleton.
// Calling Load twice is an error, avoiding startup configuration races.
func Load(envPath string) error {
	if cfgDone {
		return errors.New("config already loaded")
	}

	newCfg, err := loadConfig(envPath)
	if err != nil {
		return err
	}
	cfgInstance = newCfg
	cfgDone = true
	return nil
}

func loadConfig(envPath string) (*Config, error) {
	// godotenv.Load errors if the file is missing; an absent .env is a
	// normal deployment (variables may come from the process environment
	// directly), so a missing file is tolerated.
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	username := strings.TrimSpace(os.Getenv("USERNAME"))
	if username == "" {
		return nil, errors.New("env USERNAME must be set")
	}

	var warnings []string

	listenTCPPort := parseIntDefault("LISTEN_TCP_PORT", 0, nonNegative, &warnings)
	listenQUICPort := parseIntDefault("LISTEN_QUIC_PORT", 0, nonNegative, &warnings)
	rendezvousAddr := strings.TrimSpace(os.Getenv("RENDEZVOUS_ADDR"))
	rendezvousNamespace := sanitizeDefault(os.Getenv("RENDEZVOUS_NAMESPACE"), defaultRendezvousNamespace)
	identityFile := sanitizeDefault(os.Getenv("IDENTITY_FILE"), defaultIdentityFile)
	logLevel := sanitizeLogLevel(os.Getenv("LOG_LEVEL"), &warnings)
	logFile := sanitizeDefault(os.Getenv("LOG_FILE"), defaultLogFile)
	eventQueueSize := parseIntDefault("EVENT_QUEUE_SIZE", defaultEventQueueSize, greaterThanZero, &warnings)
	commandQueueSize := parseIntDefault("COMMAND_QUEUE_SIZE", defaultCommandQueueSize, greaterThanZero, &warnings)

	env := EnvConfig{
		Username:            username,
		ListenTCPPort:       listenTCPPort,
		ListenQUICPort:      listenQUICPort,
		RendezvousAddr:      rendezvousAddr,
		RendezvousNamespace: rendezvousNamespace,
		IdentityFile:        identityFile,
		LogLevel:            logLevel,
		LogFile:             logFile,
		EventQueueSize:      eventQueueSize,
		CommandQueueSize:    commandQueueSize,
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// Warnings returns the warnings accumulated while loading the environment
// (e.g. a default value substituted for an unset or invalid variable).
func Warnings() []string {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	out := make([]string, len(cfgInstance.warnings))
	copy(out, cfgInstance.warnings)
	return out
}

// Env returns the loaded EnvConfig.
func Env() EnvConfig {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	return cfgInstance.Env
}

func appendWarningf(warnings *[]string, format string, args ...any) {
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

func parseIntDefault(name string, defaultVal int, validator func(int) bool, warnings *[]string) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(value)
	if err != nil || !validator(v) {
		appendWarningf(warnings, "env %s value %q is invalid; using default %d", name, value, defaultVal)
		return defaultVal
	}
	return v
}

func sanitizeDefault(value, defaultVal string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	return value
}

func sanitizeLogLevel(value string, warnings *[]string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "debug", "info", "warn", "error":
		return value
	case "":
		return defaultLogLevel
	default:
		appendWarningf(warnings, "env LOG_LEVEL value %q is not recognized; using default %q", value, defaultLogLevel)
		return defaultLogLevel
	}
}

func nonNegative(v int) bool     { return v >= 0 }
func greaterThanZero(v int) bool { return v > 0 }
