// Package integration runs the shipping service against real PostgreSQL and MongoDB
// containers and asserts the audit log rows written for each request.
//
// Run with: go test -tags=integration ./tests/integration/...
package integration
