package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/deskagent/comm"
	"github.com/hupe1980/deskagent/files"
	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/logging"
	"github.com/hupe1980/deskagent/monitor"
	"github.com/hupe1980/deskagent/proc"
)

// DefaultInterval is the pause between monitoring cycles.
const DefaultInterval = 30 * time.Second

// Bus topics published by the daemon.
const (
	// TopicStatus carries "started" and "stopped" lifecycle payloads.
	TopicStatus = "daemon.status"
	// TopicSnapshot carries a *monitor.Snapshot per cycle.
	TopicSnapshot = "system.snapshot"
	// TopicProcesses carries the []proc.ProcessInfo scanned per cycle.
	TopicProcesses = "system.processes"
	// TopicAlert carries system and GPU threshold alert strings.
	TopicAlert = "system.alert"
	// TopicProcessAlert carries per-process CPU and memory hog alerts.
	TopicProcessAlert = "process.alert"
	// TopicFileChanged carries files.ChangeEvent values from watched dirs.
	TopicFileChanged = "files.changed"
)

// SystemSource provides system snapshots and the limits to judge them by.
// *monitor.Monitor is the production implementation.
type SystemSource interface {
	Snapshot(ctx context.Context) (*monitor.Snapshot, error)
	Thresholds() monitor.Thresholds
}

// GPUSource provides per-GPU snapshots. *gpu.Monitor is the production
// implementation; on machines without NVIDIA hardware it reports no GPUs
// and the daemon skips the check.
type GPUSource interface {
	Snapshots(ctx context.Context) []gpu.Snapshot
	Thresholds() gpu.Thresholds
}

// ProcessSource lists processes and flags resource hogs. *proc.Manager is
// the production implementation.
type ProcessSource interface {
	List(ctx context.Context) ([]proc.ProcessInfo, error)
	HighCPU(procs []proc.ProcessInfo) []proc.ProcessInfo
	HighMemory(procs []proc.ProcessInfo) []proc.ProcessInfo
}

var (
	_ SystemSource  = (*monitor.Monitor)(nil)
	_ GPUSource     = (*gpu.Monitor)(nil)
	_ ProcessSource = (*proc.Manager)(nil)
)

// Options configures an Orchestrator instance.
//
// Use functional options with New to override defaults.
type Options struct {
	// Interval between monitoring cycles. Defaults to DefaultInterval.
	Interval time.Duration

	// System, GPU and Processes are the metric sources. Nil fields get
	// default production implementations.
	System    SystemSource
	GPU       GPUSource
	Processes ProcessSource

	// WatchDirs lists directories watched recursively for file changes.
	// Each change is published on TopicFileChanged.
	WatchDirs []string

	// Bus receives every published snapshot, alert and status message.
	// Defaults to a fresh bus.
	Bus *comm.Bus

	// Center receives every alert for dedup, throttling and escalation.
	// Defaults to a fresh center.
	Center *comm.Center

	// Logger receives structured events.
	Logger logging.Logger
}

// Orchestrator coordinates the monitoring sources into one polling loop.
type Orchestrator struct {
	interval time.Duration
	system   SystemSource
	gpu      GPUSource
	procs    ProcessSource
	bus      *comm.Bus
	center   *comm.Center
	watchers []*files.Watcher
	logger   logging.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an Orchestrator.
func New(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Interval: DefaultInterval,
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.System == nil {
		opts.System = monitor.New(func(o *monitor.MonitorOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.GPU == nil {
		opts.GPU = gpu.New(func(o *gpu.MonitorOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Processes == nil {
		opts.Processes = proc.NewManager(func(o *proc.ManagerOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Bus == nil {
		opts.Bus = comm.NewBus(func(o *comm.BusOptions) {
			o.Logger = opts.Logger
		})
	}

	if opts.Center == nil {
		opts.Center = comm.NewCenter(func(o *comm.CenterOptions) {
			o.Logger = opts.Logger
		})
	}

	orch := &Orchestrator{
		interval: opts.Interval,
		system:   opts.System,
		gpu:      opts.GPU,
		procs:    opts.Processes,
		bus:      opts.Bus,
		center:   opts.Center,
		logger:   opts.Logger,
	}

	for _, dir := range opts.WatchDirs {
		orch.watchers = append(orch.watchers, files.NewWatcher(dir, orch.onFileChange, func(o *files.WatcherOptions) {
			o.Recursive = true
			o.Logger = opts.Logger
		}))
	}

	return orch
}

// Bus returns the message bus the daemon publishes on.
func (o *Orchestrator) Bus() *comm.Bus { return o.bus }

// Center returns the notification center alerts are routed through.
func (o *Orchestrator) Center() *comm.Center { return o.center }

// Running reports whether the background loop is active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start launches the file watchers and the background monitoring loop. The
// first cycle runs immediately, then one per interval until Stop is called
// or ctx is cancelled.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return errors.New("orchestrator already running")
	}

	for i, w := range o.watchers {
		if err := w.Start(); err != nil {
			for _, started := range o.watchers[:i] {
				started.Stop()
			}
			return fmt.Errorf("start watcher: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})
	o.running = true

	go o.loop(ctx, o.done)

	o.logger.Info("daemon.start", "interval", o.interval.String(), "watch_dirs", len(o.watchers))
	o.bus.Publish(comm.Message{Topic: TopicStatus, Payload: "started", Source: "orchestrator"})

	return nil
}

// Stop halts the loop and the file watchers, blocking until the in-flight
// cycle finishes.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()

	if !o.running {
		o.mu.Unlock()
		return errors.New("orchestrator not running")
	}

	cancel, done := o.cancel, o.done
	o.running = false
	o.cancel = nil
	o.done = nil
	o.mu.Unlock()

	cancel()
	<-done

	for _, w := range o.watchers {
		w.Stop()
	}

	o.logger.Info("daemon.stop")
	o.bus.Publish(comm.Message{Topic: TopicStatus, Payload: "stopped", Source: "orchestrator"})

	return nil
}

func (o *Orchestrator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	o.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Tick(ctx)
		}
	}
}

// Tick runs a single monitoring cycle synchronously. The background loop
// calls it once per interval; tests and one-shot callers can invoke it
// directly.
func (o *Orchestrator) Tick(ctx context.Context) {
	o.checkSystem(ctx)
	o.checkGPU(ctx)
	o.checkProcesses(ctx)
}

func (o *Orchestrator) checkSystem(ctx context.Context) {
	snap, err := o.system.Snapshot(ctx)
	if err != nil {
		o.logger.Error("daemon.snapshot", "error", err)
		return
	}

	o.bus.Publish(comm.Message{Topic: TopicSnapshot, Payload: snap, Source: "monitor"})
	o.logger.Debug("daemon.snapshot", "cpu", snap.CPUPercent, "memory", snap.MemoryPercent)

	for _, alert := range monitor.CheckThresholds(snap, o.system.Thresholds()) {
		o.logger.Warn("daemon.alert", "source", "monitor", "alert", alert)
		o.raise(alert, "monitor", comm.UrgencyCritical, TopicAlert)
	}
}

func (o *Orchestrator) checkGPU(ctx context.Context) {
	snaps := o.gpu.Snapshots(ctx)
	if len(snaps) == 0 {
		return
	}

	for _, alert := range gpu.CheckThresholds(snaps, o.gpu.Thresholds()) {
		o.logger.Warn("daemon.alert", "source", "gpu", "alert", alert)
		o.raise(alert, "gpu", comm.UrgencyNormal, TopicAlert)
	}
}

func (o *Orchestrator) checkProcesses(ctx context.Context) {
	procs, err := o.procs.List(ctx)
	if err != nil {
		o.logger.Error("daemon.processes", "error", err)
		return
	}

	o.bus.Publish(comm.Message{Topic: TopicProcesses, Payload: procs, Source: "proc"})
	o.logger.Debug("daemon.processes", "count", len(procs))

	for _, p := range o.procs.HighCPU(procs) {
		msg := fmt.Sprintf("Process %q (PID %d) using %.1f%% CPU", p.Name, p.PID, p.CPUPercent)
		o.logger.Warn("daemon.alert", "source", "proc", "alert", msg)
		o.raise(msg, "proc", comm.UrgencyNormal, TopicProcessAlert)
	}

	for _, p := range o.procs.HighMemory(procs) {
		msg := fmt.Sprintf("Process %q (PID %d) using %.0f MB memory", p.Name, p.PID, p.MemoryMB)
		o.logger.Warn("daemon.alert", "source", "proc", "alert", msg)
		o.raise(msg, "proc", comm.UrgencyNormal, TopicProcessAlert)
	}
}

// raise mirrors an alert onto the bus and through the notification center.
func (o *Orchestrator) raise(message, source string, urgency comm.Urgency, topic string) {
	o.bus.Publish(comm.Message{Topic: topic, Payload: message, Source: source})
	o.center.Notify(message, source, urgency, topic)
}

func (o *Orchestrator) onFileChange(event files.ChangeEvent) {
	o.logger.Debug("daemon.file_change", "kind", string(event.Kind), "path", event.Path)
	o.bus.Publish(comm.Message{Topic: TopicFileChanged, Payload: event, Source: "files"})
}
