package platemap

import (
	"time"

	"github.com/turtacn/platemap/internal/domain/library"
)

// RunStatus is the final state of one pipeline run.
type RunStatus string

const (
	RunComplete   RunStatus = "complete"
	RunIncomplete RunStatus = "incomplete"
	RunFailed     RunStatus = "failed"
)

// Run is the record of one analyze, enumerate and merge pass. It is what
// run history sinks store and what completion events describe.
type Run struct {
	ID           string             `json:"run_id"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	ProtocolPath string             `json:"protocol_path"`
	SulfonylPath string             `json:"sulfonyl_path"`
	AminePath    string             `json:"amine_path"`
	Status       RunStatus          `json:"status"`
	Wells        int                `json:"wells"`
	Missing      int                `json:"missing"`
	Summary      library.Summary    `json:"products"`
	Artifacts    []string           `json:"artifacts,omitempty"`
	Records      []ReconciledRecord `json:"-"`
}

// StatusOf maps a merge result to a run status.
func StatusOf(r *MergeResult) RunStatus {
	if r == nil {
		return RunFailed
	}
	if r.Complete() {
		return RunComplete
	}
	return RunIncomplete
}

//Personal.AI order the ending
