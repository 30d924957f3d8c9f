// Package timeouts defines shared timeout constants used across the driver.
// Centralizing these values keeps the queue, the script runner and the CLI
// defaults in agreement and makes the durations discoverable.
package timeouts

import "time"

// DefaultCommand caps how long a single command may run before it times
// out, unless the command sets its own timeout.
const DefaultCommand = 4 * time.Second

// RetryInterval is the pause between two attempts of a query resolver.
const RetryInterval = 16 * time.Millisecond

// Run caps a whole script run started from the command line.
const Run = 60 * time.Second

// Flush limits how long persisting run logs may take after a run ends.
const Flush = 5 * time.Second
