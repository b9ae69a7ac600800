// Package daemon coordinates the long-running SenseGrid controller
// process.
//
// It wires configuration, queue storage, the backend client, the
// connectivity monitor, the sync trigger, and the MQTT state feed into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes queue maintenance helpers, routes user commands
// through the optimistic coordinator, and owns the notifications sent when
// a queued command exhausts its retry budget.
//
// Keep orchestration logic here: queue semantics live in package offline
// while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
