package bootstrap

import (
	"time"

	"github.com/pseudomuto/dbstrap/pkg/executor"
)

// Skip reasons recorded in TargetSummary.SkipReason.
const (
	ReasonContainerNotFound  = "container not found"
	ReasonNotReady           = "not ready"
	ReasonAlreadyInitialized = "already initialized"
	ReasonNoScripts          = "no scripts"
	ReasonRuntimeUnavailable = "runtime unavailable"
)

const (
	StatePending       State = "pending"
	StateResolving     State = "resolving"
	StateProbing       State = "probing"
	StateCheckingState State = "checking-state"
	StateExecuting     State = "executing"
	StateSkipped       State = "skipped"
	StateDone          State = "done"
)

const (
	// EventState marks a state transition.
	EventState EventKind = "state"

	// EventScript reports the outcome of one script.
	EventScript EventKind = "script"

	// EventSkipped reports that a target was skipped.
	EventSkipped EventKind = "skipped"
)

type (
	// State is the position of a target in the bootstrap state machine.
	State string

	// EventKind classifies progress events.
	EventKind string

	// TargetSummary is the outcome of bootstrapping one target.
	TargetSummary struct {
		Label        string                      `json:"label"`
		Service      string                      `json:"service"`
		Database     string                      `json:"database"`
		ContainerID  string                      `json:"container_id,omitempty"`
		State        State                       `json:"state"`
		SuccessCount int                         `json:"success_count"`
		FailureCount int                         `json:"failure_count"`
		Skipped      bool                        `json:"skipped"`
		SkipReason   string                      `json:"skip_reason,omitempty"`
		Detail       string                      `json:"detail,omitempty"`
		Results      []*executor.ExecutionResult `json:"results,omitempty"`

		// LaunchErr is set when the container runtime could not be launched.
		LaunchErr error `json:"-"`
	}

	// Event is a progress notification emitted while a target is processed.
	Event struct {
		Kind    EventKind
		Target  string
		State   State
		Message string
		Script  string
		Result  *executor.ExecutionResult
		Summary *TargetSummary
		Time    time.Time
	}

	// Reporter receives progress events. Implementations used with parallel runs
	// are called from one goroutine at a time.
	Reporter interface {
		Report(Event)
	}

	// ReporterFunc adapts a function to a Reporter.
	ReporterFunc func(Event)
)

func (f ReporterFunc) Report(e Event) {
	f(e)
}

// Failed reports whether any script failed or the runtime could not be launched.
func (s *TargetSummary) Failed() bool {
	return s.FailureCount > 0 || s.LaunchErr != nil
}

// AnyFailed reports whether any summary Failed.
func AnyFailed(summaries []*TargetSummary) bool {
	for _, s := range summaries {
		if s.Failed() {
			return true
		}
	}

	return false
}
