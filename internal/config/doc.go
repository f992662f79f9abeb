// Package config loads reelsmith-api settings with viper: built-in
// defaults, an optional YAML file, then REELSMITH_ environment variables.
// The result is validated once at startup, so cmd/server can assemble the
// ledger, realtime bus and queue manager from a Config it trusts.
package config
