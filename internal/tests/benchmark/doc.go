// Package benchmark provides performance benchmarks for the token manager
// and its storage backends.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run with specific token counts:
//
//	go test -bench=BenchmarkValidate -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
