// Package voteledgerengine implements vote casting and results
// reconciliation inside the election-operations context.
//
// The module owns the end-to-end cast protocol (per-voter single flight,
// double-vote guards, ledger submission with bounded confirmation), the
// election lifecycle anchored to ledger block numbers, and snapshot
// publication rebuilt from the ledger event log. Business rules live in the
// application/domain layers; the ledger, the database, and HTTP stay behind
// ports and adapters.
package voteledgerengine
