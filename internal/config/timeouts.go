package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the duration settings that can be tuned from the
// environment.
type Timeouts struct {
	Command        time.Duration // Hard limit for one remote command
	RetryBaseDelay time.Duration // Delay before the first retry
	RetryMaxDelay  time.Duration // Cap on any retry delay
	RetryMax       int           // Retries after the first attempt
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - OPSPROV_COMMAND_TIMEOUT (default: 10m)
//   - OPSPROV_RETRY_BASE_DELAY (default: 1s)
//   - OPSPROV_RETRY_MAX_DELAY (default: 30s)
//   - OPSPROV_MAX_RETRIES (default: 3)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Command:        parseDuration("OPSPROV_COMMAND_TIMEOUT", 10*time.Minute),
		RetryBaseDelay: parseDuration("OPSPROV_RETRY_BASE_DELAY", 1*time.Second),
		RetryMaxDelay:  parseDuration("OPSPROV_RETRY_MAX_DELAY", 30*time.Second),
		RetryMax:       parseInt("OPSPROV_MAX_RETRIES", DefaultMaxRetries),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
