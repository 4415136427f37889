package standings

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/padraicbc/rallyapi/models"
)

// RaceRef is a race currently linked to a championship.
type RaceRef struct {
	RaceID    int64
	StartDate time.Time
}

// ChampionshipInput is everything ComputeChampionship needs.
type ChampionshipInput struct {
	ChampionshipID int64
	Races          []RaceRef
	Results        []models.RaceResult
}

type standingKey struct {
	riderID  int64
	category models.Category
}

// ComputeChampionship sums RaceResults per (rider, category). A rider who has
// a result in every linked race has the single lowest race score dropped; on
// equal scores the earliest race is dropped.
func ComputeChampionship(in ChampionshipInput) ([]models.ChampionshipResult, error) {
	if len(in.Races) == 0 {
		return nil, nil
	}

	races := make(map[int64]RaceRef, len(in.Races))
	for _, r := range in.Races {
		races[r.RaceID] = r
	}

	groups := map[standingKey][]models.RaceResult{}
	seen := map[[2]int64]bool{}
	for _, rr := range in.Results {
		if _, ok := races[rr.RaceID]; !ok {
			return nil, &ComputationError{
				Scope: "championship", ID: in.ChampionshipID,
				Reason: fmt.Sprintf("result for race %d which is not linked", rr.RaceID),
			}
		}
		pair := [2]int64{rr.RaceID, rr.RiderID}
		if seen[pair] {
			return nil, &ComputationError{
				Scope: "championship", ID: in.ChampionshipID,
				Reason: fmt.Sprintf("rider %d has two results in race %d", rr.RiderID, rr.RaceID),
			}
		}
		seen[pair] = true
		k := standingKey{riderID: rr.RiderID, category: rr.Category}
		groups[k] = append(groups[k], rr)
	}

	out := make([]models.ChampionshipResult, 0, len(groups))
	for k, results := range groups {
		total := decimal.Zero
		for _, rr := range results {
			total = total.Add(rr.TotalPoints)
		}
		dropped := decimal.Zero
		if len(results) == len(in.Races) {
			lowest := slices.MinFunc(results, func(a, b models.RaceResult) int {
				if c := a.TotalPoints.Cmp(b.TotalPoints); c != 0 {
					return c
				}
				if c := races[a.RaceID].StartDate.Compare(races[b.RaceID].StartDate); c != 0 {
					return c
				}
				return cmp.Compare(a.RaceID, b.RaceID)
			})
			dropped = lowest.TotalPoints
			total = total.Sub(dropped)
		}
		out = append(out, models.ChampionshipResult{
			ChampionshipID:     in.ChampionshipID,
			RiderID:            k.riderID,
			Category:           k.category,
			TotalPoints:        total,
			RacesParticipated:  len(results),
			LowestScoreDropped: dropped,
		})
	}

	slices.SortFunc(out, func(a, b models.ChampionshipResult) int {
		if c := cmp.Compare(categoryIndex(a.Category), categoryIndex(b.Category)); c != 0 {
			return c
		}
		if c := b.TotalPoints.Cmp(a.TotalPoints); c != 0 {
			return c
		}
		return cmp.Compare(a.RiderID, b.RiderID)
	})
	return out, nil
}
