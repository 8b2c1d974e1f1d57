// Package config loads deskkit client settings from the environment.
//
// Values come from process environment variables, optionally seeded from a .env
// file in the working directory (loaded once per process, missing file is fine).
// Struct fields are bound with caarlos0/env tags, so any component-specific
// struct can reuse Parse:
//
//	var cfg config.Config
//	if err := config.Parse(&cfg); err != nil { ... }
//
// Load is the common entry point: it parses Config, fills derived defaults
// (store path, origin) and validates the result.
package config
