package gpu

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/deskagent/logging"
)

// ProcessInfo is a single process consuming GPU memory.
type ProcessInfo struct {
	PID    int32   `json:"pid"`
	Name   string  `json:"name"`
	VRAMMB float64 `json:"vram_mb"`
}

// Snapshot is a point-in-time view of one GPU.
type Snapshot struct {
	Index              int           `json:"index"`
	Name               string        `json:"name"`
	VRAMUsedMB         float64       `json:"vram_used_mb"`
	VRAMTotalMB        float64       `json:"vram_total_mb"`
	VRAMFreeMB         float64       `json:"vram_free_mb"`
	VRAMPercent        float64       `json:"vram_percent"`
	TemperatureC       float64       `json:"temperature_c"`
	UtilizationPercent float64       `json:"utilization_percent"`
	PowerDrawW         float64       `json:"power_draw_w"`
	PowerLimitW        float64       `json:"power_limit_w"`
	Processes          []ProcessInfo `json:"processes,omitempty"`
	Timestamp          time.Time     `json:"timestamp"`
}

// VRAMUsedGB returns used VRAM in gigabytes, rounded to two decimals.
func (s *Snapshot) VRAMUsedGB() float64 {
	return math.Round(s.VRAMUsedMB/1024*100) / 100
}

// VRAMTotalGB returns total VRAM in gigabytes, rounded to two decimals.
func (s *Snapshot) VRAMTotalGB() float64 {
	return math.Round(s.VRAMTotalMB/1024*100) / 100
}

// String renders the snapshot as a single summary line.
func (s *Snapshot) String() string {
	return fmt.Sprintf("GPU %d [%s]  VRAM %.1f/%.1f GB (%.0f%%)  Temp %.0f°C  Util %.0f%%  Power %.0f/%.0f W",
		s.Index, s.Name, s.VRAMUsedGB(), s.VRAMTotalGB(), s.VRAMPercent,
		s.TemperatureC, s.UtilizationPercent, s.PowerDrawW, s.PowerLimitW)
}

// Thresholds are the levels above which a GPU counts as stressed.
type Thresholds struct {
	VRAMPercent        float64 `json:"vram_percent" yaml:"vram_percent"`
	TemperatureC       float64 `json:"temperature_c" yaml:"temperature_c"`
	UtilizationPercent float64 `json:"utilization_percent" yaml:"utilization_percent"`
}

// DefaultThresholds returns the stock GPU alerting thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{VRAMPercent: 90, TemperatureC: 85, UtilizationPercent: 95}
}

// CheckThresholds returns a human-readable alert line for every GPU in
// snaps that exceeds a threshold.
func CheckThresholds(snaps []Snapshot, th Thresholds) []string {
	var messages []string
	for i := range snaps {
		snap := &snaps[i]
		if snap.VRAMPercent >= th.VRAMPercent {
			messages = append(messages, fmt.Sprintf("GPU %d [%s] high VRAM: %.0f%% used (%.1f/%.1f GB)",
				snap.Index, snap.Name, snap.VRAMPercent, snap.VRAMUsedGB(), snap.VRAMTotalGB()))
		}
		if snap.TemperatureC >= th.TemperatureC {
			messages = append(messages, fmt.Sprintf("GPU %d [%s] high temperature: %.0f°C",
				snap.Index, snap.Name, snap.TemperatureC))
		}
		if snap.UtilizationPercent >= th.UtilizationPercent {
			messages = append(messages, fmt.Sprintf("GPU %d [%s] high utilisation: %.0f%%",
				snap.Index, snap.Name, snap.UtilizationPercent))
		}
	}
	return messages
}

// FormatSnapshots renders a multi-line GPU summary including the
// per-process VRAM consumers of each card.
func FormatSnapshots(snaps []Snapshot) string {
	if len(snaps) == 0 {
		return "No NVIDIA GPUs detected."
	}
	lines := []string{fmt.Sprintf("=== GPU Snapshot (%s) ===", time.Now().Format("15:04:05"))}
	for i := range snaps {
		lines = append(lines, "  "+snaps[i].String())
		for _, proc := range snaps[i].Processes {
			lines = append(lines, fmt.Sprintf("    ↳ PID %d [%s]  %.0f MB VRAM", proc.PID, proc.Name, proc.VRAMMB))
		}
	}
	return strings.Join(lines, "\n")
}

// gpuQuery lists the --query-gpu fields, in parse order.
const gpuQuery = "index,name,memory.used,memory.total,memory.free," +
	"temperature.gpu,utilization.gpu,power.draw,power.limit"

// MonitorOptions configures a Monitor instance.
//
// Use functional options with New to override defaults.
type MonitorOptions struct {
	// Thresholds are the alerting limits applied by Alerts.
	Thresholds Thresholds

	// CommandTimeout bounds each nvidia-smi invocation.
	CommandTimeout time.Duration

	// Logger receives structured events.
	Logger logging.Logger
}

// Monitor queries NVIDIA GPUs through the nvidia-smi CLI.
type Monitor struct {
	thresholds Thresholds
	timeout    time.Duration
	logger     logging.Logger
}

// New creates a GPU Monitor.
func New(optFns ...func(o *MonitorOptions)) *Monitor {
	opts := MonitorOptions{
		Thresholds:     DefaultThresholds(),
		CommandTimeout: 10 * time.Second,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Monitor{
		thresholds: opts.Thresholds,
		timeout:    opts.CommandTimeout,
		logger:     opts.Logger,
	}
}

// Thresholds returns the configured alerting limits.
func (m *Monitor) Thresholds() Thresholds { return m.thresholds }

// Available reports whether the nvidia-smi CLI can be found.
func (m *Monitor) Available() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// Snapshots returns a Snapshot for every installed GPU. A missing
// driver or failing CLI yields an empty slice, never an error, so
// GPU-less hosts behave like hosts with zero GPUs.
func (m *Monitor) Snapshots(ctx context.Context) []Snapshot {
	out, err := m.run(ctx, "--query-gpu="+gpuQuery, "--format=csv,noheader,nounits")
	if err != nil {
		m.logger.Debug("gpu.query.skip", "error", err.Error())
		return nil
	}

	snaps := parseGPUCSV(out)
	for i := range snaps {
		procsOut, err := m.run(ctx,
			"--query-compute-apps=pid,name,used_memory",
			"--format=csv,noheader,nounits",
			fmt.Sprintf("--id=%d", snaps[i].Index))
		if err != nil {
			continue
		}
		snaps[i].Processes = parseProcessCSV(procsOut)
	}
	return snaps
}

// Alerts takes fresh snapshots and evaluates them against the
// configured thresholds.
func (m *Monitor) Alerts(ctx context.Context) []string {
	return CheckThresholds(m.Snapshots(ctx), m.thresholds)
}

func (m *Monitor) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "nvidia-smi", args...).Output()
	if err != nil {
		return "", fmt.Errorf("nvidia-smi: %w", err)
	}
	return string(out), nil
}

// parseGPUCSV decodes `nvidia-smi --query-gpu` CSV output. Lines that
// are short or carry unparseable numbers are skipped.
func parseGPUCSV(out string) []Snapshot {
	var snaps []Snapshot

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := splitCSV(line)
		if len(parts) < 9 {
			continue
		}

		index, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		used, err := smiFloat(parts[2])
		if err != nil {
			continue
		}
		total, err := smiFloat(parts[3])
		if err != nil {
			continue
		}
		free, err := smiFloat(parts[4])
		if err != nil {
			continue
		}
		temp, err := smiFloat(parts[5])
		if err != nil {
			continue
		}
		util, err := smiFloat(parts[6])
		if err != nil {
			continue
		}
		power, err := smiFloat(parts[7])
		if err != nil {
			continue
		}
		powerLimit, err := smiFloat(parts[8])
		if err != nil {
			continue
		}

		percent := 0.0
		if total > 0 {
			percent = used / total * 100
		}

		snaps = append(snaps, Snapshot{
			Index:              index,
			Name:               parts[1],
			VRAMUsedMB:         used,
			VRAMTotalMB:        total,
			VRAMFreeMB:         free,
			VRAMPercent:        percent,
			TemperatureC:       temp,
			UtilizationPercent: util,
			PowerDrawW:         power,
			PowerLimitW:        powerLimit,
			Timestamp:          time.Now(),
		})
	}

	return snaps
}

// parseProcessCSV decodes `nvidia-smi --query-compute-apps` CSV output.
func parseProcessCSV(out string) []ProcessInfo {
	var procs []ProcessInfo

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := splitCSV(line)
		if len(parts) < 3 {
			continue
		}
		pid, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		vram, err := smiFloat(parts[2])
		if err != nil {
			continue
		}
		procs = append(procs, ProcessInfo{PID: int32(pid), Name: parts[1], VRAMMB: vram})
	}

	return procs
}

func splitCSV(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// smiFloat parses an nvidia-smi numeric field. Driver-side "[N/A]"
// markers read as zero rather than failing the line.
func smiFloat(s string) (float64, error) {
	if s == "[N/A]" || s == "N/A" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
