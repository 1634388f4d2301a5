package events

import "time"

// ProgressReporter emits throttled progress events for a long-running task.
type ProgressReporter struct {
	bus         *Bus
	eventType   EventType
	module      string
	task        string
	lastReport  time.Time
	minInterval time.Duration
}

// NewProgressReporter creates a reporter throttled to 10 updates/sec,
// enough for a real-time feel without flooding the stream.
func NewProgressReporter(bus *Bus, eventType EventType, module, task string) *ProgressReporter {
	return &ProgressReporter{
		bus:         bus,
		eventType:   eventType,
		module:      module,
		task:        task,
		minInterval: 100 * time.Millisecond,
	}
}

// Report emits a progress event. Intermediate updates are throttled;
// reaching the total always goes through.
func (pr *ProgressReporter) Report(current, total int, message string) {
	if pr.bus == nil {
		return
	}
	now := time.Now()
	if now.Sub(pr.lastReport) < pr.minInterval && current != total {
		return
	}
	pr.lastReport = now

	pr.bus.Publish(pr.eventType, pr.module, map[string]interface{}{
		"task":    pr.task,
		"current": current,
		"total":   total,
		"message": message,
	})
}
