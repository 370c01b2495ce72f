// Package quality scores generated scripts before assembly. A composite of
// weighted dimensions (historical accuracy, cultural sensitivity, educational
// value, fact verification, language quality) must clear the configured
// thresholds, and any blocking issue fails the item outright. A rejection is
// terminal for the item.
package quality
