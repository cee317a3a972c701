// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server endpoints, request/heartbeat timeouts, and logging settings.
package config
