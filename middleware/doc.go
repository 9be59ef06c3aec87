// Package middleware exposes HTTP route guards driven by the client session.
//
// # Guards
//
//   - [RequireLogin] admits only logged-in sessions and redirects others.
//   - [RequireRoute] admits only paths the session's role may open.
//
// Both read the session through a [SessionProvider], normally the hydrated
// session store, and never mutate it.
//
// # What this package must NOT do
//
//   - Write session state or touch storage.
//   - Define role permissions (navigation owns the table).
package middleware
