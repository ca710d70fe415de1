package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deskagent/comm"
	"github.com/hupe1980/deskagent/files"
	"github.com/hupe1980/deskagent/gpu"
	"github.com/hupe1980/deskagent/monitor"
	"github.com/hupe1980/deskagent/proc"
)

// -------------------- Fakes --------------------

type fakeSystem struct {
	snap  *monitor.Snapshot
	err   error
	th    monitor.Thresholds
	calls atomic.Int32
}

func (f *fakeSystem) Snapshot(ctx context.Context) (*monitor.Snapshot, error) {
	f.calls.Add(1)
	return f.snap, f.err
}

func (f *fakeSystem) Thresholds() monitor.Thresholds { return f.th }

type fakeGPU struct {
	snaps []gpu.Snapshot
	th    gpu.Thresholds
}

func (f *fakeGPU) Snapshots(ctx context.Context) []gpu.Snapshot { return f.snaps }
func (f *fakeGPU) Thresholds() gpu.Thresholds                   { return f.th }

type fakeProcs struct {
	procs   []proc.ProcessInfo
	err     error
	highCPU []proc.ProcessInfo
	highMem []proc.ProcessInfo
}

func (f *fakeProcs) List(ctx context.Context) ([]proc.ProcessInfo, error) { return f.procs, f.err }

func (f *fakeProcs) HighCPU(procs []proc.ProcessInfo) []proc.ProcessInfo { return f.highCPU }

func (f *fakeProcs) HighMemory(procs []proc.ProcessInfo) []proc.ProcessInfo { return f.highMem }

// quietSources never trip any threshold, so tests can opt into alerts one
// at a time.
func quietSources() (*fakeSystem, *fakeGPU, *fakeProcs) {
	sys := &fakeSystem{
		snap: &monitor.Snapshot{Timestamp: time.Now(), CPUPercent: 12.5, MemoryPercent: 40},
		th:   monitor.Thresholds{CPU: 101, Memory: 101, Disk: 101},
	}
	g := &fakeGPU{th: gpu.Thresholds{VRAMPercent: 101, TemperatureC: 1000, UtilizationPercent: 101}}
	p := &fakeProcs{procs: []proc.ProcessInfo{{PID: 101, Name: "chrome"}}}

	return sys, g, p
}

type recorder struct {
	mu   sync.Mutex
	msgs []comm.Message
}

func (r *recorder) handle(msg comm.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) all() []comm.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]comm.Message(nil), r.msgs...)
}

// permissiveCenter drops the dedup and throttle windows so every alert in a
// test lands as its own record.
func permissiveCenter() *comm.Center {
	return comm.NewCenter(func(o *comm.CenterOptions) {
		o.DedupWindow = 0
		o.ThrottleWindow = 0
	})
}

// -------------------- Tick Tests --------------------

func TestTickPublishesSnapshotAndProcesses(t *testing.T) {
	sys, g, p := quietSources()
	bus := comm.NewBus()

	var snapRec, procRec recorder
	bus.Subscribe(TopicSnapshot, snapRec.handle)
	bus.Subscribe(TopicProcesses, procRec.handle)

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
	})

	orch.Tick(context.Background())

	require.Equal(t, 1, snapRec.count())
	msg := snapRec.all()[0]
	assert.Equal(t, "monitor", msg.Source)
	assert.Same(t, sys.snap, msg.Payload)

	require.Equal(t, 1, procRec.count())
	procs, ok := procRec.all()[0].Payload.([]proc.ProcessInfo)
	require.True(t, ok)
	assert.Len(t, procs, 1)
}

func TestTickRaisesSystemAlert(t *testing.T) {
	sys, g, p := quietSources()
	sys.snap.CPUPercent = 99.2
	sys.th.CPU = 85

	bus := comm.NewBus()
	center := permissiveCenter()

	var alertRec recorder
	bus.Subscribe(TopicAlert, alertRec.handle)

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
		o.Center = center
	})

	orch.Tick(context.Background())

	require.Equal(t, 1, alertRec.count())
	msg := alertRec.all()[0]
	assert.Equal(t, "monitor", msg.Source)
	assert.Contains(t, msg.Payload.(string), "High CPU usage: 99.2%")

	alerts := center.ActiveAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, comm.UrgencyCritical, alerts[0].Urgency)
	assert.Equal(t, "monitor", alerts[0].Source)
}

func TestTickRaisesGPUAlert(t *testing.T) {
	sys, g, p := quietSources()
	g.snaps = []gpu.Snapshot{{Index: 0, Name: "RTX 4090", VRAMPercent: 97, VRAMUsedMB: 23000, VRAMTotalMB: 24000}}
	g.th.VRAMPercent = 90

	bus := comm.NewBus()

	var alertRec recorder
	bus.Subscribe(TopicAlert, alertRec.handle)

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
		o.Center = permissiveCenter()
	})

	orch.Tick(context.Background())

	require.Equal(t, 1, alertRec.count())
	msg := alertRec.all()[0]
	assert.Equal(t, "gpu", msg.Source)
	assert.Contains(t, msg.Payload.(string), "high VRAM")
}

func TestTickRaisesProcessAlerts(t *testing.T) {
	sys, g, p := quietSources()
	p.highCPU = []proc.ProcessInfo{{PID: 101, Name: "chrome", CPUPercent: 88.5}}
	p.highMem = []proc.ProcessInfo{{PID: 104, Name: "ollama", MemoryMB: 840}}

	bus := comm.NewBus()
	center := permissiveCenter()

	var alertRec recorder
	bus.Subscribe(TopicProcessAlert, alertRec.handle)

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
		o.Center = center
	})

	orch.Tick(context.Background())

	require.Equal(t, 2, alertRec.count())
	msgs := alertRec.all()
	assert.Equal(t, `Process "chrome" (PID 101) using 88.5% CPU`, msgs[0].Payload)
	assert.Equal(t, `Process "ollama" (PID 104) using 840 MB memory`, msgs[1].Payload)

	records := center.History()
	require.Len(t, records, 2)
	assert.Equal(t, comm.UrgencyNormal, records[0].Urgency)
	assert.Equal(t, "process.alert", records[0].Topic)
}

func TestTickThrottlesRepeatedProcessAlerts(t *testing.T) {
	sys, g, p := quietSources()
	p.highCPU = []proc.ProcessInfo{{PID: 101, Name: "chrome", CPUPercent: 88.5}}
	p.highMem = []proc.ProcessInfo{{PID: 104, Name: "ollama", MemoryMB: 840}}

	center := comm.NewCenter()

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Center = center
	})

	orch.Tick(context.Background())

	// Both alerts share source and topic, so the default center throttles
	// the second one.
	records := center.History()
	require.Len(t, records, 2)
	assert.False(t, records[0].Suppressed)
	assert.True(t, records[1].Suppressed)
}

func TestTickSurvivesSnapshotError(t *testing.T) {
	sys, g, p := quietSources()
	sys.err = errors.New("psutil exploded")

	bus := comm.NewBus()

	var snapRec, procRec recorder
	bus.Subscribe(TopicSnapshot, snapRec.handle)
	bus.Subscribe(TopicProcesses, procRec.handle)

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
	})

	orch.Tick(context.Background())

	assert.Equal(t, 0, snapRec.count())
	assert.Equal(t, 1, procRec.count(), "process check still runs after a snapshot failure")
}

func TestTickSurvivesProcessListError(t *testing.T) {
	sys, g, p := quietSources()
	p.err = errors.New("scan failed")

	bus := comm.NewBus()

	var procRec recorder
	bus.Subscribe(TopicProcesses, procRec.handle)

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
	})

	orch.Tick(context.Background())

	assert.Equal(t, 0, procRec.count())
}

// -------------------- Lifecycle Tests --------------------

func TestStartStopLifecycle(t *testing.T) {
	sys, g, p := quietSources()
	bus := comm.NewBus()

	var statusRec, snapRec recorder
	bus.Subscribe(TopicStatus, statusRec.handle)
	bus.Subscribe(TopicSnapshot, snapRec.handle)

	orch := New(func(o *Options) {
		o.Interval = time.Hour
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
	})

	require.False(t, orch.Running())

	require.NoError(t, orch.Start(context.Background()))
	require.True(t, orch.Running())

	err := orch.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	// The first cycle runs immediately, not one interval in.
	require.Eventually(t, func() bool { return snapRec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, orch.Stop())
	require.False(t, orch.Running())

	err = orch.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")

	statuses := statusRec.all()
	require.Len(t, statuses, 2)
	assert.Equal(t, "started", statuses[0].Payload)
	assert.Equal(t, "stopped", statuses[1].Payload)
}

func TestRunsCyclesPeriodically(t *testing.T) {
	sys, g, p := quietSources()

	orch := New(func(o *Options) {
		o.Interval = 20 * time.Millisecond
		o.System = sys
		o.GPU = g
		o.Processes = p
	})

	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	require.Eventually(t, func() bool { return sys.calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartFailsOnMissingWatchDir(t *testing.T) {
	sys, g, p := quietSources()

	orch := New(func(o *Options) {
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.WatchDirs = []string{filepath.Join(t.TempDir(), "does-not-exist")}
	})

	require.Error(t, orch.Start(context.Background()))
	assert.False(t, orch.Running())
}

func TestForwardsFileChanges(t *testing.T) {
	sys, g, p := quietSources()
	dir := t.TempDir()
	bus := comm.NewBus()

	var fileRec recorder
	bus.Subscribe(TopicFileChanged, fileRec.handle)

	orch := New(func(o *Options) {
		o.Interval = time.Hour
		o.System = sys
		o.GPU = g
		o.Processes = p
		o.Bus = bus
		o.WatchDirs = []string{dir}
	})

	require.NoError(t, orch.Start(context.Background()))
	defer orch.Stop()

	path := filepath.Join(dir, "incoming.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.Eventually(t, func() bool { return fileRec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

	event, ok := fileRec.all()[0].Payload.(files.ChangeEvent)
	require.True(t, ok)
	assert.Equal(t, files.ChangeCreated, event.Kind)
	assert.Equal(t, path, event.Path)
}

func TestNewDefaults(t *testing.T) {
	orch := New()

	assert.NotNil(t, orch.Bus())
	assert.NotNil(t, orch.Center())
	assert.False(t, orch.Running())
	assert.Equal(t, DefaultInterval, orch.interval)
}
