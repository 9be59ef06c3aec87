// Package httpapi exposes a [goEMS.Client] over HTTP for the browser shell:
// the session snapshot, login and logout, attendance, project creation and
// role-guarded page routes.
//
// Responses use a {status, data} envelope on success and
// {status, code, message} on failure.
//
// # What this package must NOT do
//
//   - Echo bearer tokens back in any response.
//   - Hold session state of its own; every read goes to the client's store.
package httpapi
