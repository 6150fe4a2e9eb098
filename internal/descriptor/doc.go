// SPDX-License-Identifier: MPL-2.0

// Package descriptor renders the server-side deployment descriptors of a test
// module from the module's own persistence.xml.
//
// Two outputs are produced from the single source document:
//
//   - META-INF/persistence.xml, the unit descriptor rewritten for the target
//     server (data source, target server and database, weaving, logging)
//   - META-INF/ejb-jar.xml, the deployment descriptor declaring one session
//     bean per test runner
//
// Each output can be switched off independently, typically because the module
// ships its own override. Templates are embedded, compiled once per process
// and shared by all generators.
package descriptor
