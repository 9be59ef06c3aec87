// Package goEMS is the session layer of the employee-management client: a
// hydrated session store mirrored into Redis, plus the collaborators that
// read and drive it (navigation, realtime notifications, the project REST
// client).
//
// A process builds exactly one [Client] through [Builder.Build]. Build
// hydrates persisted state before returning, so every [Client] method and
// every setter on [Client.Store] observes the restored state.
//
// # Architecture boundaries
//
// goEMS is the composition root. It exposes [Client], [Builder], [Config] and
// value types (MetricsSnapshot, AuditEvent). The state model and its
// write-through live in session, durable backends in storage, the role table
// in navigation, and transports in realtime and projects. Sub-packages never
// import goEMS.
//
// # What this package must NOT do
//
//   - Surface storage errors from Login, Logout, CheckIn or CheckOut; storage
//     outages degrade the session to memory-only and are counted instead.
//   - Hydrate more than once per Client.
//   - Put bearer tokens into audit events or logs.
package goEMS
