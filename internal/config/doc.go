// Package config loads, validates, and defaults the TOML configuration file
// shared by the daemon and CLI.
package config
