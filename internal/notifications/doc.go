// Package notifications delivers operator push notifications through ntfy.
// Individual event classes can be toggled in configuration; without a
// configured topic the service is a no-op.
package notifications
