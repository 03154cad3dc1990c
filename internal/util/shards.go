package util

import "runtime"

// MaxShards caps the automatic and explicit shard counts.
const MaxShards = 256

// NextPow2 returns the smallest power of two >= x (1 for x <= 1).
// Results above 1<<62 are clamped to 1<<62.
func NextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	n := 1
	for n < x && n < 1<<62 {
		n <<= 1
	}
	return n
}

// ShardCount normalizes a requested shard count: values <= 0 pick
// 2*GOMAXPROCS, and the result is rounded up to a power of two and
// clamped to [1, MaxShards].
func ShardCount(requested int) int {
	if requested <= 0 {
		requested = 2 * runtime.GOMAXPROCS(0)
	}
	n := NextPow2(requested)
	if n > MaxShards {
		n = MaxShards
	}
	return n
}

// ShardIndex maps a hash onto one of n shards; n must be a power of two.
func ShardIndex(hash uint64, n int) int {
	return int(hash & uint64(n-1))
}
