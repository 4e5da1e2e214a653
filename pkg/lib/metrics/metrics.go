// Package metrics records supervisor lifecycle events.
package metrics

// Trigger names what asked for a restart.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerSchedule Trigger = "schedule"
)

// Collector receives supervisor lifecycle events.
type Collector interface {
	// ProcessStarted records a successful spawn.
	ProcessStarted()
	// SpawnFailed records a spawn that returned an error.
	SpawnFailed()
	// StopRequested records a stop command sent to a running child.
	StopRequested()
	// ProcessExited records a child exit; expected is false for crashes and external kills.
	ProcessExited(code int, expected bool)
	// Restarted records a completed stop-then-start cycle.
	Restarted(trigger Trigger)
	// CommandForwarded records a line written to the child's stdin.
	CommandForwarded()
}

type noopCollector struct{}

func (noopCollector) ProcessStarted()          {}
func (noopCollector) SpawnFailed()             {}
func (noopCollector) StopRequested()           {}
func (noopCollector) ProcessExited(int, bool)  {}
func (noopCollector) Restarted(Trigger)        {}
func (noopCollector) CommandForwarded()        {}

// NewNoop creates a collector that discards everything.
func NewNoop() Collector {
	return noopCollector{}
}
