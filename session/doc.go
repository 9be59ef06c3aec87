// Package session owns the client's authentication and attendance state and
// mirrors it into durable storage.
//
// # State
//
// [State] holds exactly five fields: the logged-in [User], the login flag, the
// attendance check-in time, the last [AttendanceRecord] and the check-out time.
// Each field maps to one durable key (see [KeyUser] and friends).
//
// # Write-through
//
// Every setter on [Store] updates one field in memory and then writes that
// single key through to the [storage.Backend]: a present value is encoded and
// stored, an absent value deletes the key. No placeholder is ever stored for an
// absent field.
//
// # Recovery
//
// [Store.Hydrate] is all-or-nothing: a decode or read failure on any key clears
// both layers and yields the empty state. Storage failures are never returned
// to callers; setters degrade to memory-only and report through [Observer].
//
// # What this package must NOT do
//
//   - Validate or rewrite user roles (navigation owns the role table).
//   - Open network connections other than through the storage backend.
//   - Import the goEMS root package (no upward imports).
package session
