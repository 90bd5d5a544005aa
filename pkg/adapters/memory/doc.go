// Package memory provides in-memory implementations of ports.RecordStore and
// ports.GraphSource. They are the default backends and the reference for the
// contract suites.
package memory
