// Package types holds the value types shared between the navigation core,
// its collaborators and the event sinks.
//
// Nothing in here has behavior beyond construction and inspection; the types
// cross package boundaries and are serialized into event records.
package types
