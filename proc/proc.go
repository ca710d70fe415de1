package proc

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/hupe1980/deskagent/logging"
)

// ProcessInfo is a lightweight snapshot of a single process.
type ProcessInfo struct {
	PID        int32   `json:"pid"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   float64 `json:"memory_mb"`
	NumThreads int32   `json:"num_threads"`
}

// ManagerOptions configures a Manager instance.
//
// Use functional options with NewManager to override defaults.
type ManagerOptions struct {
	// CPUThreshold is the percentage above which a single process is
	// flagged as a CPU hog.
	CPUThreshold float64

	// MemoryThresholdMB is the RSS in MB above which a single process
	// is flagged as a memory hog.
	MemoryThresholdMB float64

	// Logger receives structured events.
	Logger logging.Logger
}

// Manager lists and monitors running OS processes.
type Manager struct {
	cpuThreshold float64
	memThreshold float64
	logger       logging.Logger
}

// NewManager creates a process Manager.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		CPUThreshold:      50,
		MemoryThresholdMB: 500,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		cpuThreshold: opts.CPUThreshold,
		memThreshold: opts.MemoryThresholdMB,
		logger:       opts.Logger,
	}
}

// List returns a ProcessInfo for every running process. Processes that
// vanish or deny access mid-scan are skipped.
func (m *Manager) List(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	result := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		info, ok := snapshotProcess(ctx, p)
		if !ok {
			continue
		}
		result = append(result, info)
	}
	return result, nil
}

// FindByName returns all processes whose name contains name,
// case-insensitively.
func (m *Manager) FindByName(ctx context.Context, name string) ([]ProcessInfo, error) {
	procs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	nameLower := strings.ToLower(name)
	var found []ProcessInfo
	for _, p := range procs {
		if strings.Contains(strings.ToLower(p.Name), nameLower) {
			found = append(found, p)
		}
	}
	return found, nil
}

// HighCPU filters procs down to those at or above the CPU threshold.
func (m *Manager) HighCPU(procs []ProcessInfo) []ProcessInfo {
	var hogs []ProcessInfo
	for _, p := range procs {
		if p.CPUPercent >= m.cpuThreshold {
			hogs = append(hogs, p)
		}
	}
	return hogs
}

// HighMemory filters procs down to those at or above the memory
// threshold.
func (m *Manager) HighMemory(procs []ProcessInfo) []ProcessInfo {
	var hogs []ProcessInfo
	for _, p := range procs {
		if p.MemoryMB >= m.memThreshold {
			hogs = append(hogs, p)
		}
	}
	return hogs
}

// Terminate sends SIGTERM to pid. It returns false when the process
// does not exist or access is denied.
func (m *Manager) Terminate(ctx context.Context, pid int32) bool {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		m.logger.Warn("proc.terminate.missing", "pid", pid)
		return false
	}
	if err := p.TerminateWithContext(ctx); err != nil {
		m.logger.Warn("proc.terminate.denied", "pid", pid, "error", err.Error())
		return false
	}
	m.logger.Info("proc.terminate", "pid", pid)
	return true
}

// Kill forcefully kills pid. It returns false when the process does not
// exist or access is denied.
func (m *Manager) Kill(ctx context.Context, pid int32) bool {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		m.logger.Warn("proc.kill.missing", "pid", pid)
		return false
	}
	if err := p.KillWithContext(ctx); err != nil {
		m.logger.Warn("proc.kill.denied", "pid", pid, "error", err.Error())
		return false
	}
	m.logger.Info("proc.kill", "pid", pid)
	return true
}

// Summary renders process statistics for procs: state counts plus any
// CPU or memory hogs.
func (m *Manager) Summary(procs []ProcessInfo) string {
	var running, sleeping, zombie int
	for _, p := range procs {
		switch p.Status {
		case process.Running:
			running++
		case process.Sleep:
			sleeping++
		case process.Zombie:
			zombie++
		}
	}

	lines := []string{
		fmt.Sprintf("=== Process Summary (total: %d) ===", len(procs)),
		fmt.Sprintf("  Running:  %d  Sleeping: %d  Zombie: %d", running, sleeping, zombie),
	}

	if hogs := m.HighCPU(procs); len(hogs) > 0 {
		parts := make([]string, len(hogs))
		for i, p := range hogs {
			parts[i] = fmt.Sprintf("%s[%d](%.1f%%)", p.Name, p.PID, p.CPUPercent)
		}
		lines = append(lines, fmt.Sprintf("  High-CPU processes (>%.0f%%): %s",
			m.cpuThreshold, strings.Join(parts, ", ")))
	}

	if hogs := m.HighMemory(procs); len(hogs) > 0 {
		parts := make([]string, len(hogs))
		for i, p := range hogs {
			parts[i] = fmt.Sprintf("%s[%d](%.0f MB)", p.Name, p.PID, p.MemoryMB)
		}
		lines = append(lines, fmt.Sprintf("  High-Memory processes (>%.0f MB): %s",
			m.memThreshold, strings.Join(parts, ", ")))
	}

	return strings.Join(lines, "\n")
}

// TopByCPU returns the n processes with the highest CPU usage, most
// hungry first.
func TopByCPU(procs []ProcessInfo, n int) []ProcessInfo {
	sorted := make([]ProcessInfo, len(procs))
	copy(sorted, procs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CPUPercent > sorted[j].CPUPercent
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func snapshotProcess(ctx context.Context, p *process.Process) (ProcessInfo, bool) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ProcessInfo{}, false
	}
	if name == "" {
		name = "<unknown>"
	}

	status := "unknown"
	if statuses, err := p.StatusWithContext(ctx); err == nil && len(statuses) > 0 {
		status = statuses[0]
	}

	cpuPercent, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		cpuPercent = 0
	}

	memMB := 0.0
	if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
		memMB = math.Round(float64(mi.RSS)/1e6*10) / 10
	}

	var threads int32
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		threads = n
	}

	return ProcessInfo{
		PID:        p.Pid,
		Name:       name,
		Status:     status,
		CPUPercent: cpuPercent,
		MemoryMB:   memMB,
		NumThreads: threads,
	}, true
}
