package standings

import (
	"errors"
	"fmt"

	"github.com/padraicbc/rallyapi/models"
)

// ValidationError reports malformed raw input. It is raised at the ingest
// boundary and never reaches the aggregators.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ReferentialError reports a stage result that does not belong to the race
// being recomputed. The rider is skipped and the cascade carries on.
type ReferentialError struct {
	RaceID  int64  `json:"raceID"`
	StageID int64  `json:"stageID"`
	RiderID int64  `json:"riderID"`
	Reason  string `json:"reason"`
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("race %d: stage %d rider %d: %s", e.RaceID, e.StageID, e.RiderID, e.Reason)
}

// ComputationError reports a broken invariant in derived data. It aborts the
// whole cascade so the previous standings stay in effect.
type ComputationError struct {
	Scope    string
	ID       int64
	Category models.Category
	Reason   string
}

func (e *ComputationError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("%s %d (%s): %s", e.Scope, e.ID, e.Category, e.Reason)
	}
	return fmt.Sprintf("%s %d: %s", e.Scope, e.ID, e.Reason)
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsComputation reports whether err wraps a *ComputationError.
func IsComputation(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}
