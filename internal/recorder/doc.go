// Package recorder is the public facade over versioned metrics logging.
//
// A Recorder ties together version resolution, the run directory with its
// run.json metadata, and the buffered CSV writer. Callers log key/value
// metric records; the recorder merges in the reserved step column, coerces
// values to their on-disk form, and flushes the buffer every Nth call (or
// only on explicit Save when no cadence is configured).
package recorder
