// Package offline implements the persistent command queue that bridges
// connectivity gaps between the local controller and the SenseGrid
// backend. Commands that cannot be delivered are stored durably and
// replayed oldest-first when the backend becomes reachable again.
//
// Two kinds of delivery failure are treated very differently: a rejection
// (the backend answered with an error) consumes one unit of the entry's
// retry budget, while a connectivity failure (no answer at all) aborts the
// whole flush pass and leaves every counter untouched.
package offline
