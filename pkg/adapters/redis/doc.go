// Package redis implements ports.RecordStore and ports.DistributedLocker on
// Redis, for deployments that run several weave instances behind one store.
package redis
