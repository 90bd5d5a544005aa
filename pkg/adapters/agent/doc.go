// Package agent provides ports.Agent implementations.
//
// Scripted replays a fixed event sequence and is used by tests and the demo
// mode of the CLI. Remote talks to an agent service over HTTP, reading the
// event stream as newline delimited JSON.
package agent
