package comm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/deskagent/logging"
)

const (
	// DefaultDedupWindow suppresses identical messages from the same source
	// arriving within this interval.
	DefaultDedupWindow = 120 * time.Second
	// DefaultThrottleWindow limits each source+topic pair to one alert per
	// interval.
	DefaultThrottleWindow = 60 * time.Second
	// DefaultEscalateCount is how often an alert must repeat inside the
	// escalation window before its urgency is raised to critical.
	DefaultEscalateCount = 3
	// DefaultEscalateWindow is the repeat-counting window for escalation.
	DefaultEscalateWindow = 5 * time.Minute
	// DefaultCenterHistorySize bounds the center's in-memory history.
	DefaultCenterHistorySize = 500
)

// Record is one processed notification.
type Record struct {
	Message    string    `json:"message"`
	Source     string    `json:"source"`
	Urgency    Urgency   `json:"urgency"`
	Topic      string    `json:"topic"`
	Time       time.Time `json:"time"`
	Suppressed bool      `json:"suppressed,omitempty"`
	Escalated  bool      `json:"escalated,omitempty"`
}

func (r Record) String() string {
	var tags []string

	if r.Suppressed {
		tags = append(tags, "SUPPRESSED")
	}

	if r.Escalated {
		tags = append(tags, "ESCALATED")
	}

	tagStr := ""
	if len(tags) > 0 {
		tagStr = fmt.Sprintf(" [%s]", strings.Join(tags, ", "))
	}

	icon := "ℹ"
	switch r.Urgency {
	case UrgencyCritical:
		icon = "🔴"
	case UrgencyNormal:
		icon = "🟡"
	case UrgencyLow:
		icon = "🟢"
	}

	return fmt.Sprintf("[%s] %s [%s] %s%s", r.Time.Format("2006-01-02 15:04:05"), icon, r.Source, r.Message, tagStr)
}

// CenterOptions configure a Center.
type CenterOptions struct {
	DedupWindow    time.Duration
	ThrottleWindow time.Duration
	EscalateCount  int
	EscalateWindow time.Duration
	HistorySize    int
	// OnNotify is called for every non-suppressed notification.
	OnNotify func(Record)
	Logger   logging.Logger
}

// HistoryFilter narrows FormatHistory output. The zero value shows the 50
// newest non-suppressed records.
type HistoryFilter struct {
	Limit             int
	Urgency           Urgency
	Source            string
	IncludeSuppressed bool
}

type fireKey struct {
	source string
	text   string
}

// Center is the hub for all assistant notifications: it records history,
// suppresses recent duplicates, throttles noisy source+topic pairs, and
// escalates alerts that keep repeating.
type Center struct {
	dedupWindow    time.Duration
	throttleWindow time.Duration
	escalateCount  int
	escalateWindow time.Duration
	historySize    int
	onNotify       func(Record)
	logger         logging.Logger
	now            func() time.Time

	mu        sync.Mutex
	history   []Record
	lastFire  map[fireKey]time.Time
	lastTopic map[fireKey]time.Time
	fireTimes map[fireKey][]time.Time
}

// NewCenter creates a Center.
func NewCenter(optFns ...func(o *CenterOptions)) *Center {
	opts := CenterOptions{
		DedupWindow:    DefaultDedupWindow,
		ThrottleWindow: DefaultThrottleWindow,
		EscalateCount:  DefaultEscalateCount,
		EscalateWindow: DefaultEscalateWindow,
		HistorySize:    DefaultCenterHistorySize,
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Center{
		dedupWindow:    opts.DedupWindow,
		throttleWindow: opts.ThrottleWindow,
		escalateCount:  opts.EscalateCount,
		escalateWindow: opts.EscalateWindow,
		historySize:    opts.HistorySize,
		onNotify:       opts.OnNotify,
		logger:         opts.Logger,
		now:            time.Now,
		lastFire:       make(map[fireKey]time.Time),
		lastTopic:      make(map[fireKey]time.Time),
		fireTimes:      make(map[fireKey][]time.Time),
	}
}

// Notify processes one notification and returns its record, which is marked
// suppressed when deduplication or throttling swallowed it. Empty source,
// urgency and topic default to "system", normal and "general".
func (c *Center) Notify(message, source string, urgency Urgency, topic string) Record {
	if source == "" {
		source = "system"
	}

	if urgency == "" {
		urgency = UrgencyNormal
	}

	if topic == "" {
		topic = "general"
	}

	c.mu.Lock()

	now := c.now()
	key := fireKey{source: source, text: message}
	topicKey := fireKey{source: source, text: topic}

	if last, ok := c.lastFire[key]; ok && now.Sub(last) < c.dedupWindow {
		rec := Record{Message: message, Source: source, Urgency: urgency, Topic: topic, Time: now, Suppressed: true}
		c.append(rec)
		c.mu.Unlock()

		c.logger.Debug("notify.suppressed", "reason", "duplicate", "source", source)

		return rec
	}

	if last, ok := c.lastTopic[topicKey]; ok && now.Sub(last) < c.throttleWindow {
		rec := Record{Message: message, Source: source, Urgency: urgency, Topic: topic, Time: now, Suppressed: true}
		c.append(rec)
		c.mu.Unlock()

		c.logger.Debug("notify.suppressed", "reason", "throttled", "source", source, "topic", topic)

		return rec
	}

	times := append(c.fireTimes[key], now)
	if len(times) > 100 {
		times = times[len(times)-100:]
	}
	c.fireTimes[key] = times

	recent := 0
	for _, t := range times {
		if now.Sub(t) <= c.escalateWindow {
			recent++
		}
	}

	escalated := false
	if recent >= c.escalateCount && urgency != UrgencyCritical {
		urgency = UrgencyCritical
		escalated = true
	}

	c.lastFire[key] = now
	c.lastTopic[topicKey] = now

	rec := Record{Message: message, Source: source, Urgency: urgency, Topic: topic, Time: now, Escalated: escalated}
	c.append(rec)

	onNotify := c.onNotify
	c.mu.Unlock()

	c.logger.Info("notify", "source", source, "urgency", string(urgency), "message", message)

	if onNotify != nil {
		c.fireCallback(onNotify, rec)
	}

	return rec
}

func (c *Center) fireCallback(onNotify func(Record), rec Record) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notify.callback", "error", fmt.Sprintf("%v", r))
		}
	}()

	onNotify(rec)
}

// append assumes the caller holds the lock.
func (c *Center) append(rec Record) {
	c.history = append(c.history, rec)
	if len(c.history) > c.historySize {
		c.history = c.history[len(c.history)-c.historySize:]
	}
}

// History returns all stored notifications, oldest first.
func (c *Center) History() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, len(c.history))
	copy(out, c.history)

	return out
}

// ActiveAlerts returns the non-suppressed notifications, newest first.
func (c *Center) ActiveAlerts() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Record

	for i := len(c.history) - 1; i >= 0; i-- {
		if !c.history[i].Suppressed {
			out = append(out, c.history[i])
		}
	}

	return out
}

// FormatHistory renders a human-readable notification log, newest first.
func (c *Center) FormatHistory(filter HistoryFilter) string {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	var records []Record

	for _, r := range c.History() {
		if !filter.IncludeSuppressed && r.Suppressed {
			continue
		}

		if filter.Urgency != "" && r.Urgency != filter.Urgency {
			continue
		}

		if filter.Source != "" && r.Source != filter.Source {
			continue
		}

		records = append(records, r)
	}

	// Newest first, then cap.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	if len(records) > filter.Limit {
		records = records[:filter.Limit]
	}

	if len(records) == 0 {
		return "No notifications matching the filters."
	}

	lines := []string{fmt.Sprintf("=== Notification History (%d shown) ===", len(records))}

	for _, r := range records {
		lines = append(lines, fmt.Sprintf("  %s", r))
	}

	return strings.Join(lines, "\n")
}

// Stats returns a one-line summary of the stored history.
func (c *Center) Stats() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var active, suppressed, critical, escalated int

	for _, r := range c.history {
		if r.Suppressed {
			suppressed++
			continue
		}

		active++

		if r.Urgency == UrgencyCritical {
			critical++
		}

		if r.Escalated {
			escalated++
		}
	}

	return fmt.Sprintf("Notifications: %d active, %d suppressed, %d critical, %d escalated",
		active, suppressed, critical, escalated)
}

// Clear wipes the history and all suppression state.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = nil
	c.lastFire = make(map[fireKey]time.Time)
	c.lastTopic = make(map[fireKey]time.Time)
	c.fireTimes = make(map[fireKey][]time.Time)
}
