//go:build !invariants && !race

package invariants

// Enabled is true if we were built with the "invariants" or "race" build tags.
// Ledger and cache self-checks that walk whole structures only run when it is
// set.
const Enabled = false
