// Package mutation tracks a single outbound translation request at a time
// and exposes its loading, error and result flags to observers.
//
// Every call gets a sequence number. Only the settlement of the most
// recently issued call changes the observable state; older calls still run
// to completion but their outcome is dropped.
package mutation
