// Package invariants gates expensive self-checks behind the "invariants" and
// "race" build tags, so that tests and debug builds fail loudly on corrupt
// ledger or cache state while production builds skip the walks.
package invariants
