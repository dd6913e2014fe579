package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the simulated exchange.
type Config struct {
	Port            int
	LogLevel        string
	TickInterval    time.Duration
	FillCap         int64
	QueueSize       int
	OverflowPolicy  string
	RNGSeed         int64
	InstrumentsFile string
	ListenerTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	tickInterval, err := getDuration("TICK_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: must be > 0")
	}

	fillCap, err := getInt64("FILL_CAP", 11)
	if err != nil {
		return nil, fmt.Errorf("invalid FILL_CAP: %w", err)
	}
	if fillCap <= 0 {
		return nil, fmt.Errorf("invalid FILL_CAP: must be > 0")
	}

	queueSize, err := getInt("QUEUE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_SIZE: %w", err)
	}
	if queueSize <= 0 {
		return nil, fmt.Errorf("invalid QUEUE_SIZE: must be > 0")
	}

	overflowPolicy := getStr("OVERFLOW_POLICY", "drop_oldest")
	switch overflowPolicy {
	case "drop_oldest", "drop_newest", "block":
	default:
		return nil, fmt.Errorf("invalid OVERFLOW_POLICY: %q, must be one of: drop_oldest, drop_newest, block", overflowPolicy)
	}

	rngSeed, err := getInt64("RNG_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RNG_SEED: %w", err)
	}

	listenerTimeout, err := getDuration("LISTENER_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LISTENER_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		TickInterval:    tickInterval,
		FillCap:         fillCap,
		QueueSize:       queueSize,
		OverflowPolicy:  overflowPolicy,
		RNGSeed:         rngSeed,
		InstrumentsFile: getStr("INSTRUMENTS_FILE", ""),
		ListenerTimeout: listenerTimeout,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
