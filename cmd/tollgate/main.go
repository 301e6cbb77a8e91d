// Tollgate is a policy enforcement engine for payment-gated HTTP APIs.
//
// It loads YAML policy files describing allowlists, denylists, rate
// limits, and spending caps, and enforces them at request time.
//
// Usage:
//
//	# Validate policy files
//	tollgate lint --file policies.yaml
//
//	# Generate middleware for an existing API
//	tollgate generate --file policies.yaml --framework express
//
//	# Start the mock payment-gated server
//	tollgate run --config tollgate.yaml
//
//	# Run policy scenarios
//	tollgate test --policy policies.yaml --scenarios scenarios.yaml
//
//	# Show version information
//	tollgate version
package main

func main() {
	Execute()
}
