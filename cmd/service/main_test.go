package main

import "testing"

// TestMain_WiringOnly documents why cmd/service has no unit tests.
func TestMain_WiringOnly(t *testing.T) {
	t.Skip("main.go only wires config, stores, the dashboard service and the router; each is tested in its internal package")
}
