// Package event holds the broker contracts between modules: destinations,
// consumer names and JSON payloads.
package event

// HeaderCorrelationID carries the correlation id of the publishing request.
const HeaderCorrelationID = "cID"
