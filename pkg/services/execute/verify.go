package execute

import (
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
)

// Canonical state capture keys. Remediators populate the subset relevant to
// the action type; verification compares before/after under these keys.
const (
	StatePresent      = "present"
	StateLakehouses   = "lakehouses"
	StatePipelines    = "pipelines"
	StateSparkJobs    = "sparkJobs"
	StateStatus       = "status"
	StateStorageGB    = "storageGB"
	StateComputeUnits = "computeUnits"
	StateMonthlyCost  = "monthlyCost"
	StateMonitoring   = "monitoring"
)

type check struct {
	description string
	pass        func(before, after domain.StateCapture) bool
}

// checksFor returns the fixed verification set for an action type. All
// checks must pass for the execution to succeed.
func checksFor(actionType domain.ActionType) []check {
	switch actionType {
	case domain.ActionTypeDelete:
		return []check{
			{
				description: "Workspace removed from catalog",
				pass: func(_, after domain.StateCapture) bool {
					return !captureBool(after, StatePresent)
				},
			},
			{
				description: "All associated resources cleaned up",
				pass: func(_, after domain.StateCapture) bool {
					return captureNum(after, StateLakehouses) == 0 &&
						captureNum(after, StatePipelines) == 0 &&
						captureNum(after, StateSparkJobs) == 0
				},
			},
		}
	case domain.ActionTypeArchive:
		return []check{
			{
				description: "Workspace archived",
				pass: func(_, after domain.StateCapture) bool {
					return after[StateStatus] == "Archived"
				},
			},
			{
				description: "Storage retained for recovery",
				pass: func(before, after domain.StateCapture) bool {
					return captureNum(after, StateStorageGB) == captureNum(before, StateStorageGB)
				},
			},
		}
	case domain.ActionTypeOptimize:
		return []check{
			{
				description: "Compute capacity reduced",
				pass: func(before, after domain.StateCapture) bool {
					return captureNum(after, StateComputeUnits) < captureNum(before, StateComputeUnits)
				},
			},
			{
				description: "Reduced compute units reflected in new cost",
				pass: func(before, after domain.StateCapture) bool {
					return captureNum(after, StateMonthlyCost) < captureNum(before, StateMonthlyCost)
				},
			},
		}
	case domain.ActionTypeMonitor:
		return []check{
			{
				description: "Enhanced monitoring active",
				pass: func(_, after domain.StateCapture) bool {
					return captureBool(after, StateMonitoring)
				},
			},
		}
	}
	return nil
}

// runChecks evaluates the verification set and returns the ordered result
// descriptions plus the subset that failed.
func runChecks(actionType domain.ActionType, before, after domain.StateCapture) (results, failed []string) {
	for _, c := range checksFor(actionType) {
		if c.pass(before, after) {
			results = append(results, c.description)
		} else {
			msg := fmt.Sprintf("FAILED: %s", c.description)
			results = append(results, msg)
			failed = append(failed, c.description)
		}
	}
	return results, failed
}

func captureNum(capture domain.StateCapture, key string) float64 {
	switch v := capture[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func captureBool(capture domain.StateCapture, key string) bool {
	v, _ := capture[key].(bool)
	return v
}
