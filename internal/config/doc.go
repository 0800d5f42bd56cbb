// Package config loads and validates the fleetpulse configuration file.
//
// Load(path) parses a YAML file into an immutable *Config, filling absent
// fields with defaults and rejecting structurally invalid values. Secrets
// (provider API keys, the CMMS webhook token) are never stored in the file
// itself; the file names an environment variable and the corresponding
// accessor (APIKey, Token) resolves it at call time.
package config
