// Package events defines the immutable Event model and the event type
// catalog used for webhook subscription matching.
//
// Events carry an arbitrary structured payload plus merged metadata
// (timestamp, source, schema_version and any caller-supplied keys).
// Once constructed an Event is never mutated; deliveries share it
// read-only.
//
// The catalog is configuration data grouped by domain (student.*,
// pass.*, entry.*/exit.*, security.*, device.*, system.*). A built-in
// default ships with the binary and a deployment can override it with
// a YAML file.
package events
