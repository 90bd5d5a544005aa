/*
Package ports defines the driven ports (interfaces) that weave consumes.

The graph model and the streaming relay never talk to a concrete agent runtime
or database. Adapters under pkg/adapters implement these interfaces.

# Key Interfaces

  - Agent: the long-running AI agent. Streams typed events or returns a completed message list.
  - RecordStore: key-value CRUD over opaque JSON records grouped in collections.
  - GraphSource: loads and saves whole graph definitions (files, loam repositories).
  - DistributedLocker: coordinates graph access across replicas.

RunRecordStoreContract and RunGraphSourceContract are reusable test suites for adapters.
*/
package ports
