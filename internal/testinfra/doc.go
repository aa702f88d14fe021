// Package testinfra starts throwaway PostgreSQL and Redis containers for
// repository integration tests.
//
// Files in this package and the tests that use it carry the integration
// build tag:
//
//	go test -tags integration ./...
//
// Tests are skipped when Docker is not available.
package testinfra
