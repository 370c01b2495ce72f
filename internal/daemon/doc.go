// Package daemon hosts the long-running production process: it owns the
// instance lock, the startup recovery sweep, and the workflow manager
// lifecycle.
package daemon
