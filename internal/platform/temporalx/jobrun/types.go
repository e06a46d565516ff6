// Package jobrun is the Temporal binding for one job_run row: a single
// generic workflow that ticks a single activity, which in turn loads
// the row and invokes whichever internal/jobs/runtime.Handler is
// registered for its job_type. Grounded on the teacher's
// internal/temporalx/jobrun package — same tick-workflow shape, adapted
// from the teacher's owner-scoped job_run to this module's
// project-scoped one.
package jobrun

import "time"

const (
	WorkflowName = "mediaforge_jobrun_tick"
	ActivityTick = "mediaforge_jobrun_tick_activity"

	// SignalResume wakes a workflow parked in "waiting_user" (unused by
	// any current handler, kept for parity with the teacher's workflow
	// shape since a future human-in-the-loop review stage would need it).
	SignalResume = "resume"
)

// TickResult is what Activities.Tick reports back to the workflow loop
// after one pass: either a terminal status (workflow returns) or a
// non-terminal one (workflow sleeps and ticks again).
type TickResult struct {
	JobID     string     `json:"job_id"`
	Status    string     `json:"status"`
	Stage     string     `json:"stage"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message"`
	WaitUntil *time.Time `json:"wait_until,omitempty"`
}
