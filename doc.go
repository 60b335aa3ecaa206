// Package neogm provides an object-graph mapper for Cypher graph databases.
//
// Define your graph schema as Go structs with struct tags, and get type-safe
// CRUD operations, composable query filters, eager relationship prefetching,
// scoped transactions, and code generation, without writing raw Cypher.
//
// The module is organized into five packages:
//
//   - [github.com/neogm/neogm/cypher]: query text primitives and the filter compiler
//   - [github.com/neogm/neogm/ogm]: mapper core with models, managers, projection, hydration, and transactions
//   - [github.com/neogm/neogm/driver]: connection contract, temporal values, configuration, record/replay
//   - [github.com/neogm/neogm/ext]: wrappers for APOC and graph-algorithm procedures
//   - [github.com/neogm/neogm/ogmgen]: code generator from a schema DSL to Go model structs
//
// The cypher, ogm, and ogmgen packages compile and test without a running
// database. Only a driver.Conn implementation talks to a real backend.
package neogm
