package main

import (
	"encoding/json"
	"fmt"
)

const defaultBackendURL = "http://localhost:8000"

// config holds the resolved runtime configuration.
type config struct {
	baseURL string
	token   string
}

// resolveConfig merges flags and environment. Flags win; the backend URL
// falls back to the local development default.
func resolveConfig(flagBackend, flagToken, envBackend, envToken string) config {
	cfg := config{baseURL: flagBackend, token: flagToken}
	if cfg.baseURL == "" {
		cfg.baseURL = envBackend
	}
	if cfg.baseURL == "" {
		cfg.baseURL = defaultBackendURL
	}
	if cfg.token == "" {
		cfg.token = envToken
	}
	return cfg
}

// parseContext decodes the inline dealership context JSON. An empty string
// means no context.
func parseContext(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("parse dealership context: %w", err)
	}
	return m, nil
}
