package core

import "runtime"

// hostThreadCeiling bounds the total number of goroutines a worker pool may push the process to.
const hostThreadCeiling = 62

// Progress receives a completion fraction in [0, 1]. Calls are monotonically increasing.
type Progress func(fraction float64)

// Report calls p if it is set.
func (p Progress) Report(fraction float64) {
	if p != nil {
		p(fraction)
	}
}

// Strategy selects how batch entry points execute. It replaces any process-wide switch:
// every batch operation receives the strategy it should use.
type Strategy struct {
	Workers int // Requested worker count; <= 1 runs sequentially
}

// Sequential runs everything on the calling goroutine.
func Sequential() Strategy {
	return Strategy{Workers: 1}
}

// Parallel requests n workers. n <= 0 uses one worker per CPU.
func Parallel(n int) Strategy {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return Strategy{Workers: n}
}

// PoolSize returns the number of workers to start for the given number of jobs,
// leaving headroom below the host ceiling for goroutines already running.
func (s Strategy) PoolSize(jobs int) int {
	n := s.Workers
	if n > jobs {
		n = jobs
	}
	if room := hostThreadCeiling - runtime.NumGoroutine(); n > room {
		n = room
	}
	if n < 1 {
		n = 1
	}
	return n
}
