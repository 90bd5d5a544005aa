/*
Package session owns the live graph stores of a process.

A Manager keeps one graph.Store per graph id, loads and persists graph
definitions through a ports.RecordStore, and serialises load/save for a
graph with a reference counted local lock plus an optional distributed
lock shared across replicas. Status changes of every live store are fanned
out to subscribers through a Hub.
*/
package session
