package supervisor

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// ResourceUsage is a point-in-time sample of the child process's resource
// consumption, a supplemented feature beyond the distilled protocol: the
// original daemon never exposed this, but any complete supervisor lets
// operators see what the game server is actually costing.
type ResourceUsage struct {
	CPUPercent  float64
	MemoryRSSMB float64
	NumThreads  int32
}

// sampleResources reads gopsutil's view of pid. Callers treat a sampling
// failure (the process just exited, permissions, platform support) as
// "no sample available" rather than fatal — resource stats are advisory.
func sampleResources(ctx context.Context, pid int32) (ResourceUsage, error) {
	proc, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("failed to look up process %d: %w", pid, err)
	}

	cpuPercent, err := proc.CPUPercentWithContext(ctx)
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("failed to read cpu usage for process %d: %w", pid, err)
	}

	memInfo, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("failed to read memory usage for process %d: %w", pid, err)
	}

	threads, err := proc.NumThreadsWithContext(ctx)
	if err != nil {
		return ResourceUsage{}, fmt.Errorf("failed to read thread count for process %d: %w", pid, err)
	}

	return ResourceUsage{
		CPUPercent:  cpuPercent,
		MemoryRSSMB: float64(memInfo.RSS) / 1024 / 1024,
		NumThreads:  threads,
	}, nil
}
