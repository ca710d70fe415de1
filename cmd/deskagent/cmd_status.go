package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deskagent/aiapp"
	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/monitor"
)

func newStatusCmd() *cobra.Command {
	var skipApps bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a one-shot report of system, GPU and AI program health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := buildLogger(cfg)
			ctx := cmd.Context()

			mon := monitor.New(func(o *monitor.MonitorOptions) {
				o.Thresholds = cfg.Monitor.Thresholds
				o.DiskPaths = cfg.Monitor.DiskPaths
				o.Logger = logger
			})

			snap, err := mon.Snapshot(ctx)
			if err != nil {
				return fmt.Errorf("collect system snapshot: %w", err)
			}

			fmt.Println(snap.Format())

			for _, alert := range monitor.CheckThresholds(snap, mon.Thresholds()) {
				fmt.Printf("⚠ %s\n", alert)
			}

			gpuMon := gpu.New(func(o *gpu.MonitorOptions) {
				o.Thresholds = cfg.GPU.Thresholds
				o.Logger = logger
			})

			snaps := gpuMon.Snapshots(ctx)
			fmt.Println()
			fmt.Println(gpu.FormatSnapshots(snaps))

			for _, alert := range gpu.CheckThresholds(snaps, gpuMon.Thresholds()) {
				fmt.Printf("⚠ %s\n", alert)
			}

			if !skipApps {
				registry := aiapp.NewRegistry(func(o *aiapp.RegistryOptions) {
					o.Logger = logger
				})

				fmt.Println()
				fmt.Println(aiapp.FormatStatus(registry.Discover(ctx)))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipApps, "no-apps", false, "skip probing local AI programs")

	return cmd
}
