// Package nodectl implements the node-level control plane of a distributed
// SQL database: the component on each cluster member that owns the set of
// tablespaces hosted locally, boots them from persistent metadata, routes
// incoming statements to the correct tablespace, reconciles local state
// against cluster-wide metadata via a background activator, and performs
// orderly shutdown.
//
// Concrete collaborator implementations (metadata store, durable log, page
// store) live in the backends subpackages; this package defines the
// contracts they satisfy and the node manager that coordinates them.
package nodectl

// Timeout model
//
// Node Manager operations are bounded by two timers:
//  1. The caller-provided context deadline/cancellation, which propagates
//     across collaborators.
//  2. An operation-specific maximum duration (e.g. waitFor* timeoutMs) used
//     for polling bounds.
//
// The Activator's wakeup signal and general lock are never held across a
// client-visible operation; executeStatement releases the shared lock
// before invoking the tablespace manager.
