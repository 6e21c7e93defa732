package watchdog

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// ProcessInfo describes one running process.
type ProcessInfo struct {
	PID  int32
	Name string
	RSS  uint64 // resident memory in bytes
}

// MemoryUsage is a snapshot of system memory.
type MemoryUsage struct {
	Used        uint64 // bytes
	Total       uint64 // bytes
	UsedPercent float64
}

// System is the operating system surface the watchdog needs.
type System interface {
	Memory(ctx context.Context) (MemoryUsage, error)
	Processes(ctx context.Context) ([]ProcessInfo, error)
	Kill(ctx context.Context, pid int32) error
}

// HostSystem implements System with gopsutil.
type HostSystem struct{}

// NewHostSystem returns the gopsutil-backed System.
func NewHostSystem() *HostSystem {
	return &HostSystem{}
}

// Memory reads virtual memory statistics.
func (HostSystem) Memory(ctx context.Context) (MemoryUsage, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryUsage{}, fmt.Errorf("failed to read memory: %w", err)
	}
	return MemoryUsage{Used: vm.Used, Total: vm.Total, UsedPercent: vm.UsedPercent}, nil
}

// Processes lists running processes. Processes that exit or deny access
// while being inspected are skipped.
func (HostSystem) Processes(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		info := ProcessInfo{PID: p.Pid, Name: name}
		if m, err := p.MemoryInfoWithContext(ctx); err == nil && m != nil {
			info.RSS = m.RSS
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Kill sends SIGKILL (or terminates on Windows) to pid.
func (HostSystem) Kill(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return fmt.Errorf("process %d: %w", pid, err)
	}
	if err := p.KillWithContext(ctx); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}
