// Package metricsfile implements the buffered CSV writer behind a run's
// metrics file.
//
// The writer reconciles an evolving column set against the on-disk header:
// records whose keys all fit the existing header are appended in place, and
// a record introducing a new key forces a full rewrite that widens the header
// and pads every prior row with empty cells. Columns are never dropped once
// introduced. Opening a directory that already holds a metrics file
// rehydrates the column set from its header, so a restarted run appends to
// its predecessor's rows instead of clobbering them.
package metricsfile
