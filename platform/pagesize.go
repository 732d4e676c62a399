// Package platform provides the virtual-memory primitive (spec.md §4.B)
// and the signal/unwind layer (spec.md §4.C) that the rest of this module
// builds guard-paged linear memories and recoverable traps on top of.
package platform

import (
	"fmt"
	"math/bits"
	"sync"

	"golang.org/x/sys/unix"
)

var (
	pageSize     uint64
	pageSizeLog2 uint
	pageSizeOnce sync.Once
)

// discoverPageSize discovers the OS page size once per process, grounded on the
// sync.Once-guarded package state idiom used throughout this module for
// process-wide state (spec.md §4/§9): "implementers may choose eager init,
// one-shot guards... the contract is only that concurrent first-use is safe
// and idempotent."
func discoverPageSize() {
	pageSizeOnce.Do(func() {
		n := unix.Getpagesize()
		if n <= 0 || bits.OnesCount(uint(n)) != 1 {
			panic(fmt.Sprintf("BUG: OS page size %d is not a positive power of two", n))
		}
		pageSize = uint64(n)
		pageSizeLog2 = uint(bits.TrailingZeros64(pageSize))
	})
}

// PageSize returns the process's virtual memory page size in bytes.
func PageSize() uint64 {
	discoverPageSize()
	return pageSize
}

// PageSizeLog2 returns log2 of PageSize.
func PageSizeLog2() uint {
	discoverPageSize()
	return pageSizeLog2
}
