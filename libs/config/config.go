// Package config holds the small environment helpers shared by libs and
// tools. Services load their structured configuration with viper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func String(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func RequiredString(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func Port(key, fallback string) (string, error) {
	v := String(key, fallback)
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}

// Bool treats "false", "0", "no" and "off" as false; anything else set is true.
func Bool(key string, fallback bool) bool {
	v := strings.ToLower(String(key, ""))
	switch v {
	case "":
		return fallback
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}

// Ratio parses a float in [0,1], returning fallback when unset or out of range.
func Ratio(key string, fallback float64) float64 {
	v := String(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}
