// Package filechain provides the core library for a decentralized
// file-storage workflow: payloads are pinned to an IPFS pinning service,
// the resulting content identifier is anchored in a ledger application,
// and a metadata record is persisted in a pluggable record store.
//
// The package exposes a metadata Service over a Repository (memory and
// Postgres implementations live under repo/), and an Orchestrator that
// sequences upload, anchoring, and persistence through the Pinner,
// Anchorer, and MetadataStore interfaces. Concrete remote clients live
// under the pinning and ledger subpackages.
package filechain
