// Package actions implements the optimistic command flow for actuators.
// The local state changes first, delivery is attempted once, and failures
// fall back to the offline queue so the user never waits on a dead
// network.
package actions
