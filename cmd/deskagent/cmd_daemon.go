package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/deskagent/comm"
	"github.com/hupe1980/deskagent/files"
	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/monitor"
	"github.com/hupe1980/deskagent/orchestrator"
	"github.com/hupe1980/deskagent/proc"
)

func newDaemonCmd() *cobra.Command {
	var (
		interval  time.Duration
		cpuTh     float64
		memTh     float64
		diskTh    float64
		watchDirs []string
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background monitoring loop until interrupted",
		Long: `Polls system, GPU and process metrics on a fixed interval, prints every
threshold alert, mirrors alerts as desktop notifications, and reports file
changes in watched directories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger := buildLogger(cfg)

			// Flags beat the config file, which beats the defaults.
			th := cfg.Monitor.Thresholds
			if cmd.Flags().Changed("cpu-threshold") {
				th.CPU = cpuTh
			}
			if cmd.Flags().Changed("mem-threshold") {
				th.Memory = memTh
			}
			if cmd.Flags().Changed("disk-threshold") {
				th.Disk = diskTh
			}

			tickEvery := cfg.Daemon.Interval.Std()
			if cmd.Flags().Changed("interval") {
				tickEvery = interval
			}

			dirs := cfg.Daemon.WatchDirs
			if cmd.Flags().Changed("watch") {
				dirs = watchDirs
			}

			notifier := comm.NewNotifier(func(o *comm.NotifierOptions) {
				o.Logger = logger
			})

			center := comm.NewCenter(func(o *comm.CenterOptions) {
				o.OnNotify = func(rec comm.Record) {
					notifier.Notify(context.Background(), rec.Source, rec.Message, rec.Urgency)
				}
				o.Logger = logger
			})

			orch := orchestrator.New(func(o *orchestrator.Options) {
				o.Interval = tickEvery
				o.System = monitor.New(func(mo *monitor.MonitorOptions) {
					mo.Thresholds = th
					mo.DiskPaths = cfg.Monitor.DiskPaths
					mo.Logger = logger
				})
				o.GPU = gpu.New(func(mo *gpu.MonitorOptions) {
					mo.Thresholds = cfg.GPU.Thresholds
					mo.Logger = logger
				})
				o.Processes = proc.NewManager(func(mo *proc.ManagerOptions) {
					mo.Logger = logger
				})
				o.WatchDirs = dirs
				o.Center = center
				o.Logger = logger
			})

			bus := orch.Bus()
			bus.Subscribe(orchestrator.TopicAlert, printAlert)
			bus.Subscribe(orchestrator.TopicProcessAlert, printAlert)
			bus.Subscribe(orchestrator.TopicFileChanged, func(msg comm.Message) {
				if event, ok := msg.Payload.(files.ChangeEvent); ok {
					fmt.Println(event)
				}
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := orch.Start(ctx); err != nil {
				return err
			}

			fmt.Printf("DeskAgent daemon running (interval %s, %d watched dirs). Press Ctrl+C to stop.\n",
				tickEvery, len(dirs))

			<-ctx.Done()
			fmt.Println("\nShutting down...")

			if err := orch.Stop(); err != nil {
				return err
			}

			fmt.Println(center.Stats())

			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", orchestrator.DefaultInterval, "pause between monitoring cycles")
	cmd.Flags().Float64Var(&cpuTh, "cpu-threshold", 85, "CPU usage percent that raises an alert")
	cmd.Flags().Float64Var(&memTh, "mem-threshold", 85, "memory usage percent that raises an alert")
	cmd.Flags().Float64Var(&diskTh, "disk-threshold", 90, "disk usage percent that raises an alert")
	cmd.Flags().StringSliceVar(&watchDirs, "watch", nil, "directory to watch for file changes (repeatable)")

	return cmd
}

func printAlert(msg comm.Message) {
	fmt.Printf("⚠ [%s] %v\n", msg.Source, msg.Payload)
}
