// Package standings turns raw stage results into race results, championship
// standings and club standings. Everything here is pure: callers load the
// inputs, the functions return the complete desired state for one scope.
package standings

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/padraicbc/rallyapi/models"
)

// Participant is a confirmed registration for a race.
type Participant struct {
	RiderID  int64
	LastName string
	Category models.Category
}

// StageEntry is one stage result together with the race its stage belongs to.
type StageEntry struct {
	StageID   int64
	RaceID    int64
	RiderID   int64
	Position  int
	TimeTaken *time.Duration
	Points    decimal.Decimal
	Penalties decimal.Decimal // seconds
	DNF       bool
	DSQ       bool
}

// RaceInput is everything ComputeRace needs for one race.
type RaceInput struct {
	RaceID       int64
	Participants []Participant
	Entries      []StageEntry
}

type riderTotals struct {
	participant Participant
	entries     []StageEntry
	skip        bool
}

// ComputeRace builds the ranked RaceResults of one race. Riders whose entries
// reference another race or who are not confirmed participants are reported
// as warnings and left out; a DNF or DSQ on any stage voids the whole race.
func ComputeRace(in RaceInput) ([]models.RaceResult, []*ReferentialError, error) {
	var warnings []*ReferentialError

	riders := make(map[int64]*riderTotals, len(in.Participants))
	invalid := map[int64]bool{}
	for _, p := range in.Participants {
		if !p.Category.Valid() {
			invalid[p.RiderID] = true
			warnings = append(warnings, &ReferentialError{
				RaceID: in.RaceID, RiderID: p.RiderID,
				Reason: "participation has unknown category " + string(p.Category),
			})
			continue
		}
		riders[p.RiderID] = &riderTotals{participant: p}
	}

	for _, e := range in.Entries {
		rt, registered := riders[e.RiderID]
		switch {
		case invalid[e.RiderID]:
			// already reported
		case e.RaceID != in.RaceID:
			// store.RaceStageEntries filters by race; other callers may not.
			warnings = append(warnings, &ReferentialError{
				RaceID: in.RaceID, StageID: e.StageID, RiderID: e.RiderID,
				Reason: "stage belongs to a different race",
			})
			if registered {
				rt.skip = true
			}
		case !registered:
			warnings = append(warnings, &ReferentialError{
				RaceID: in.RaceID, StageID: e.StageID, RiderID: e.RiderID,
				Reason: "rider has no confirmed participation",
			})
		default:
			rt.entries = append(rt.entries, e)
		}
	}

	byCategory := map[models.Category][]RankKey{}
	for _, rt := range riders {
		if rt.skip || len(rt.entries) == 0 || voided(rt.entries) {
			continue
		}
		points, total := sumEntries(rt.entries)
		c := rt.participant.Category
		byCategory[c] = append(byCategory[c], RankKey{
			RiderID:   rt.participant.RiderID,
			LastName:  rt.participant.LastName,
			Points:    points,
			TotalTime: total,
		})
	}

	results := make([]models.RaceResult, 0, len(riders))
	categories := make([]models.Category, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b models.Category) int {
		return cmp.Compare(categoryIndex(a), categoryIndex(b))
	})

	for _, c := range categories {
		keys := byCategory[c]
		slices.SortFunc(keys, CompareRank)
		for i, k := range keys {
			results = append(results, models.RaceResult{
				RaceID:          in.RaceID,
				RiderID:         k.RiderID,
				Category:        c,
				OverallPosition: i + 1,
				TotalTime:       k.TotalTime,
				TotalPoints:     k.Points,
			})
		}
	}

	if err := verifyRanks(in.RaceID, results); err != nil {
		return nil, warnings, err
	}
	slices.SortFunc(warnings, func(a, b *ReferentialError) int {
		if c := cmp.Compare(a.RiderID, b.RiderID); c != 0 {
			return c
		}
		return cmp.Compare(a.StageID, b.StageID)
	})
	return results, warnings, nil
}

func voided(entries []StageEntry) bool {
	for _, e := range entries {
		if e.DNF || e.DSQ {
			return true
		}
	}
	return false
}

// sumEntries totals points and, when every stage was timed, elapsed time with
// penalty seconds added on top.
func sumEntries(entries []StageEntry) (decimal.Decimal, *time.Duration) {
	points := decimal.Zero
	penalties := decimal.Zero
	var elapsed time.Duration
	timed := true
	for _, e := range entries {
		points = points.Add(e.Points)
		penalties = penalties.Add(e.Penalties)
		if e.TimeTaken == nil {
			timed = false
			continue
		}
		elapsed += *e.TimeTaken
	}
	if !timed {
		return points, nil
	}
	elapsed += PenaltyDuration(penalties)
	return points, &elapsed
}

// PenaltyDuration converts penalty seconds to a duration, truncated to the
// millisecond.
func PenaltyDuration(seconds decimal.Decimal) time.Duration {
	ms := seconds.Mul(decimal.NewFromInt(1000)).IntPart()
	return time.Duration(ms) * time.Millisecond
}
