// Package ledger contains the Ledger Sync bounded context.
// This context mirrors accounting entities (customers, invoices, items, ...)
// between the local portal and the external accounting platform.
//
// Key concepts:
//   - SyncOperation: one durable unit of sync work (push or pull)
//   - EntityMapping: bijective correspondence between local and remote ids
//   - DependencyGraph: ordering constraints between entity types
//   - SyncBatch / SyncRun: grouping and accounting for a coordinator pass
//   - LedgerClient: port for the remote accounting platform's API
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package ledger
