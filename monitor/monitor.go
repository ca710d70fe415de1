package monitor

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"

	"github.com/hupe1980/deskagent/logging"
)

// DiskStats describes usage of a single monitored filesystem path.
type DiskStats struct {
	Path    string  `json:"path"`
	TotalGB float64 `json:"total_gb"`
	UsedGB  float64 `json:"used_gb"`
	FreeGB  float64 `json:"free_gb"`
	Percent float64 `json:"percent"`
}

// NetworkStats holds cumulative traffic counters since boot.
type NetworkStats struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// Snapshot is a point-in-time view of system resource usage.
type Snapshot struct {
	Timestamp     time.Time     `json:"timestamp"`
	CPUPercent    float64       `json:"cpu_percent"`
	MemoryPercent float64       `json:"memory_percent"`
	MemoryUsedMB  float64       `json:"memory_used_mb"`
	MemoryTotalMB float64       `json:"memory_total_mb"`
	Disks         []DiskStats   `json:"disks,omitempty"`
	Network       *NetworkStats `json:"network,omitempty"`
}

// Format renders the snapshot as a multi-line human-readable summary.
func (s *Snapshot) Format() string {
	lines := []string{
		fmt.Sprintf("=== System Snapshot (%s) ===", s.Timestamp.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("  CPU:    %5.1f%%", s.CPUPercent),
		fmt.Sprintf("  Memory: %5.1f%%  (%.0f MB / %.0f MB)", s.MemoryPercent, s.MemoryUsedMB, s.MemoryTotalMB),
	}
	for _, d := range s.Disks {
		lines = append(lines, fmt.Sprintf("  Disk [%s]:  %5.1f%%  (%.2f GB free of %.2f GB)",
			d.Path, d.Percent, d.FreeGB, d.TotalGB))
	}
	if s.Network != nil {
		lines = append(lines, fmt.Sprintf("  Network: ↑ %.1f MB sent  ↓ %.1f MB recv",
			float64(s.Network.BytesSent)/1e6, float64(s.Network.BytesRecv)/1e6))
	}
	return strings.Join(lines, "\n")
}

// Thresholds are the usage percentages above which a resource counts as
// stressed.
type Thresholds struct {
	CPU    float64 `json:"cpu" yaml:"cpu"`
	Memory float64 `json:"memory" yaml:"memory"`
	Disk   float64 `json:"disk" yaml:"disk"`
}

// DefaultThresholds returns the stock alerting thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{CPU: 85, Memory: 85, Disk: 90}
}

// CheckThresholds returns a human-readable alert line for every resource
// in snap that exceeds its threshold. An empty slice means all clear.
func CheckThresholds(snap *Snapshot, th Thresholds) []string {
	var messages []string

	if snap.CPUPercent >= th.CPU {
		messages = append(messages, fmt.Sprintf("High CPU usage: %.1f%% (threshold %.0f%%)",
			snap.CPUPercent, th.CPU))
	}

	if snap.MemoryPercent >= th.Memory {
		messages = append(messages, fmt.Sprintf("High memory usage: %.1f%% (%.0f MB / %.0f MB) (threshold %.0f%%)",
			snap.MemoryPercent, snap.MemoryUsedMB, snap.MemoryTotalMB, th.Memory))
	}

	for _, d := range snap.Disks {
		if d.Percent >= th.Disk {
			messages = append(messages, fmt.Sprintf("Low disk space on %s: %.1f%% used (%.2f GB free) (threshold %.0f%%)",
				d.Path, d.Percent, d.FreeGB, th.Disk))
		}
	}

	return messages
}

// MonitorOptions configures a Monitor instance.
//
// Use functional options with New to override defaults.
type MonitorOptions struct {
	// Thresholds are the alerting limits applied by Alerts.
	Thresholds Thresholds

	// DiskPaths lists the filesystem paths included in snapshots.
	DiskPaths []string

	// Logger receives structured events.
	Logger logging.Logger
}

// Monitor polls system resources and reports snapshots and alerts.
type Monitor struct {
	thresholds Thresholds
	diskPaths  []string
	logger     logging.Logger
}

// New creates a Monitor watching the root filesystem by default.
func New(optFns ...func(o *MonitorOptions)) *Monitor {
	opts := MonitorOptions{
		Thresholds: DefaultThresholds(),
		DiskPaths:  []string{"/"},
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Monitor{
		thresholds: opts.Thresholds,
		diskPaths:  opts.DiskPaths,
		logger:     opts.Logger,
	}
}

// Thresholds returns the configured alerting limits.
func (m *Monitor) Thresholds() Thresholds { return m.thresholds }

// Snapshot returns a fresh point-in-time resource snapshot. Disk paths
// that cannot be statted and network counter failures are skipped
// rather than failing the whole snapshot.
func (m *Monitor) Snapshot(ctx context.Context) (*Snapshot, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	cpuPercent := 0.0
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}

	snap := &Snapshot{
		Timestamp:     time.Now(),
		CPUPercent:    cpuPercent,
		MemoryPercent: vm.UsedPercent,
		MemoryUsedMB:  round1(float64(vm.Used) / 1e6),
		MemoryTotalMB: round1(float64(vm.Total) / 1e6),
	}

	for _, path := range m.diskPaths {
		usage, err := disk.UsageWithContext(ctx, path)
		if err != nil {
			m.logger.Debug("monitor.disk.skip", "path", path, "error", err.Error())
			continue
		}
		snap.Disks = append(snap.Disks, DiskStats{
			Path:    path,
			TotalGB: round2(float64(usage.Total) / 1e9),
			UsedGB:  round2(float64(usage.Used) / 1e9),
			FreeGB:  round2(float64(usage.Free) / 1e9),
			Percent: usage.UsedPercent,
		})
	}

	if counters, err := psnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		snap.Network = &NetworkStats{
			BytesSent:   counters[0].BytesSent,
			BytesRecv:   counters[0].BytesRecv,
			PacketsSent: counters[0].PacketsSent,
			PacketsRecv: counters[0].PacketsRecv,
		}
	}

	return snap, nil
}

// Alerts takes a fresh snapshot and evaluates it against the configured
// thresholds.
func (m *Monitor) Alerts(ctx context.Context) ([]string, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return CheckThresholds(snap, m.thresholds), nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }
