// Package experiment runs lightweight A/B variation experiments on published
// content. Variation sets are generated deterministically per content,
// platform, and dimension, exposure is decided by a weighted coin carried on
// each variation, and
// winners are resolved from platform-weighted outcome metrics with a
// heuristic confidence score. State lives in its own SQLite database so
// experiments survive restarts.
package experiment
