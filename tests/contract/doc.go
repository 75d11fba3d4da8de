// Package contract verifies the shipping service against the consumer pacts in
// testdata/pacts. The service runs in process and the quote service is faked at the
// transport level, so no sockets are opened.
//
// Run with: go test -tags=contract ./tests/contract/...
package contract
