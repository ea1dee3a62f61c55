// Package flows runs login, refresh, logout and validation against injected
// dependencies and classifies the outcome. Mapping outcomes to exported
// errors, metrics and audit events is left to the root package.
//
// Flows hold no state between calls and do no I/O of their own.
package flows
