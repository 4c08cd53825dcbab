// Package experiment resolves versioned log directories for runs.
//
// A run's directory is rootDir/name/version_<N> for integer versions or
// rootDir/name/<literal> for named versions, with the name segment collapsing
// when empty. Integer versions are auto-assigned by scanning the existing
// version_<N> siblings and taking max+1. Directory creation and the per-run
// run.json metadata record are both idempotent, so reopening an existing
// versioned directory resumes a prior run rather than clobbering it.
package experiment
