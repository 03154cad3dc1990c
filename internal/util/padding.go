package util

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is a reasonable default for most modern CPUs.
const CacheLineSize = 64

// CacheLinePad separates hot fields into distinct cache lines.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// PaddedCounter is an atomic counter occupying a whole cache line, so
// counters of neighbouring shards do not false-share.
type PaddedCounter struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

// PaddedFloat is an atomically stored float64 padded to one cache line.
type PaddedFloat struct {
	bits atomic.Uint64
	_    [CacheLineSize - 8]byte
}

// Load returns the stored value.
func (f *PaddedFloat) Load() float64 { return math.Float64frombits(f.bits.Load()) }

// Store sets the value.
func (f *PaddedFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

var (
	_ [CacheLineSize - int(unsafe.Sizeof(PaddedCounter{}))]byte
	_ [CacheLineSize - int(unsafe.Sizeof(PaddedFloat{}))]byte
)
