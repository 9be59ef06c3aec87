// Package token inspects the backend-issued bearer token before the REST
// client sends it.
//
// The client usually holds no verification key, so [Inspector] parses claims
// without verifying the signature unless a key is configured. Either way an
// expired token is rejected locally with [ErrExpired], which lets the caller
// log the user out instead of sending a request that will fail.
//
// # What this package must NOT do
//
//   - Mint tokens (the backend owns issuance).
//   - Persist tokens (the composition root stores them).
package token
