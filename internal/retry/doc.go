// Package retry wraps a unit of stage work with bounded fixed-delay retries
// and an optional fallback producer. It is stage-agnostic: the executor only
// sees whether work failed, never what the work does.
package retry
