// Package system holds process-level helpers: resource limits and
// build statistics.
package system

import (
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// InitResourceLimits raises the open-file limit. Prefetched synthesis
// and asset probing open many files at once.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Failed to read the open-file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Failed to raise the open-file limit: %v", err)
	} else {
		fmt.Printf("[*] Open-file limit raised to %d\n", rLimit.Cur)
	}
}

// BuildStats collects counters over one build run.
type BuildStats struct {
	started  time.Time
	proc     *process.Process
	Lines    int
	Segments int
	Duration float64
}

// NewBuildStats starts the clock for a build.
func NewBuildStats() *BuildStats {
	s := &BuildStats{started: time.Now()}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		s.proc = p
	}
	return s
}

// Report logs a one-line build summary.
func (s *BuildStats) Report() {
	elapsed := time.Since(s.started).Round(time.Millisecond)
	log.Printf("[+++] Build done: %d lines, %d segments, %.2fs of timeline in %s",
		s.Lines, s.Segments, s.Duration, elapsed)

	if s.proc == nil {
		return
	}
	if mem, err := s.proc.MemoryInfo(); err == nil {
		log.Printf("[*] Peak process memory: %.1f MB", float64(mem.RSS)/1024/1024)
	}
	if cpu, err := s.proc.Times(); err == nil {
		log.Printf("[*] CPU time: %.2fs user, %.2fs system", cpu.User, cpu.System)
	}
}
