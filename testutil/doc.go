// Package testutil provides helpers for tests and benchmarks: seeded random
// vector sources and an exact nearest-neighbor reference ranking to verify
// search results against.
package testutil
