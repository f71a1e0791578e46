// Package api contains tests that run against a real backend server.
//
// These tests require the backend server to be running before execution.
//
// Usage:
//
//	# Start the backend server first
//	go run ./cmd/svp serve
//
//	# Then run the API tests
//	API_TOKEN=<jwt> go test -tags=api ./tests/api/... -v
//
// Environment Variables:
//
//	API_BASE_URL - Base URL of the API server (default: http://localhost:3001)
//	API_TOKEN    - Bearer token signed with the server's JWT_SECRET; the
//	               authenticated tests are skipped without it
package api
