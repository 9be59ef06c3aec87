// Package internaldefs holds the metric names shared by the exporters.
//
// Both the Prometheus and OTel exporters read these definitions, so a rename
// here changes every exporter at once.
//
// # What this package must NOT do
//
//   - Import any exporter package.
//   - Perform I/O.
package internaldefs
