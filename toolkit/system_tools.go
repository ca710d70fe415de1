package toolkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/monitor"
	"github.com/hupe1980/deskagent/tool"
)

// withAlerts appends an alert block to a report when there is anything to
// warn about.
func withAlerts(text string, alerts []string) string {
	if len(alerts) == 0 {
		return text
	}

	lines := make([]string, 0, len(alerts))
	for _, a := range alerts {
		lines = append(lines, fmt.Sprintf("  ⚠ %s", a))
	}

	return text + "\n\nAlerts:\n" + strings.Join(lines, "\n")
}

func (t *Toolkit) systemSnapshotTool() tool.Tool {
	return tool.Tool{
		Name:        "system_snapshot",
		Description: "Get current CPU, memory and disk usage with any active alerts.",
		Category:    CategorySystem,
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			snap, err := t.monitor.Snapshot(ctx)
			if err != nil {
				return "", nil, err
			}

			alerts := monitor.CheckThresholds(snap, t.monitor.Thresholds())

			payload := map[string]any{
				"cpu_percent":    snap.CPUPercent,
				"memory_percent": snap.MemoryPercent,
			}

			return withAlerts(snap.Format(), alerts), payload, nil
		},
	}
}

func (t *Toolkit) gpuStatsTool() tool.Tool {
	return tool.Tool{
		Name:        "gpu_stats",
		Description: "Get NVIDIA GPU VRAM, temperature, utilisation and per-process memory.",
		Category:    CategorySystem,
		Handler: func(ctx context.Context, args map[string]any) (string, any, error) {
			snaps := t.gpu.Snapshots(ctx)

			alerts := gpu.CheckThresholds(snaps, t.gpu.Thresholds())

			payload := make([]map[string]any, 0, len(snaps))
			for _, s := range snaps {
				payload = append(payload, map[string]any{
					"index":         s.Index,
					"name":          s.Name,
					"vram_percent":  s.VRAMPercent,
					"temperature_c": s.TemperatureC,
				})
			}

			return withAlerts(gpu.FormatSnapshots(snaps), alerts), payload, nil
		},
	}
}
