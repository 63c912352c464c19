// Package internal contains helpers private to goGuard: session ID
// generation here, and asynchronous audit dispatch in the audit
// sub-package.
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGuard API.
package internal
