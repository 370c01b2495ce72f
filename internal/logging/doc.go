// Package logging wires log/slog with the formats and standardized field
// keys used across the pipeline. Stage handlers receive loggers already
// annotated with item, stage, and correlation fields pulled from context.
package logging
