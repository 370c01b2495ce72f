// Package config loads, normalizes, and validates the TOML configuration
// used by both the CLI and the daemon. Defaults cover every field so a
// missing config file still yields a runnable setup; Validate enforces the
// invariants other packages rely on (quality weights summing to 1.0,
// exposure fractions in (0,1], heartbeat timing ordering).
package config
