package standings

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/rallyapi/models"
)

func pts(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func dur(d time.Duration) *time.Duration { return &d }

func entry(stage, race, rider int64, points int64, taken *time.Duration) StageEntry {
	return StageEntry{StageID: stage, RaceID: race, RiderID: rider, Position: 1, TimeTaken: taken, Points: pts(points)}
}

func TestComputeRace_SumsPointsAndTime(t *testing.T) {
	in := RaceInput{
		RaceID:       1,
		Participants: []Participant{{RiderID: 10, LastName: "Angelov", Category: models.CategoryExpert}},
		Entries: []StageEntry{
			entry(100, 1, 10, 10, dur(10*time.Minute)),
			entry(101, 1, 10, 15, dur(12*time.Minute)),
		},
	}

	got, warnings, err := ComputeRace(in)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	want := []models.RaceResult{{
		RaceID: 1, RiderID: 10, Category: models.CategoryExpert,
		OverallPosition: 1, TotalTime: dur(22 * time.Minute), TotalPoints: pts(25),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ComputeRace() mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeRace_DNFAndDSQExcludeRider(t *testing.T) {
	dnf := entry(101, 1, 20, 0, nil)
	dnf.DNF = true
	dsq := entry(100, 1, 30, 25, dur(9*time.Minute))
	dsq.DSQ = true

	in := RaceInput{
		RaceID: 1,
		Participants: []Participant{
			{RiderID: 10, LastName: "Angelov", Category: models.CategoryExpert},
			{RiderID: 20, LastName: "Borisov", Category: models.CategoryExpert},
			{RiderID: 30, LastName: "Dimitrov", Category: models.CategoryExpert},
		},
		Entries: []StageEntry{
			entry(100, 1, 10, 10, dur(10*time.Minute)),
			entry(100, 1, 20, 20, dur(8*time.Minute)),
			dnf,
			dsq,
			entry(101, 1, 30, 25, dur(9*time.Minute)),
		},
	}

	got, _, err := ComputeRace(in)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].RiderID)
	assert.Equal(t, 1, got[0].OverallPosition)
}

func TestComputeRace_RiderWithoutResultsIsSkipped(t *testing.T) {
	in := RaceInput{
		RaceID: 1,
		Participants: []Participant{
			{RiderID: 10, LastName: "Angelov", Category: models.CategoryProfi},
			{RiderID: 11, LastName: "Vasilev", Category: models.CategoryProfi},
		},
		Entries: []StageEntry{entry(100, 1, 10, 5, nil)},
	}

	got, warnings, err := ComputeRace(in)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].RiderID)
}

func TestComputeRace_ZeroStagesIsEmpty(t *testing.T) {
	got, warnings, err := ComputeRace(RaceInput{
		RaceID:       7,
		Participants: []Participant{{RiderID: 1, LastName: "A", Category: models.CategoryWomen}},
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, got)
}

func TestComputeRace_MissingTimeMeansNoTotalTime(t *testing.T) {
	in := RaceInput{
		RaceID:       1,
		Participants: []Participant{{RiderID: 10, LastName: "Angelov", Category: models.CategoryJunior}},
		Entries: []StageEntry{
			entry(100, 1, 10, 10, dur(10*time.Minute)),
			entry(101, 1, 10, 7, nil),
		},
	}

	got, _, err := ComputeRace(in)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].TotalTime)
	assert.True(t, got[0].TotalPoints.Equal(pts(17)))
}

func TestComputeRace_PenaltiesAddTimeNotPoints(t *testing.T) {
	e1 := entry(100, 1, 10, 10, dur(10*time.Minute))
	e1.Penalties = decimal.RequireFromString("30")
	e2 := entry(101, 1, 10, 15, dur(12*time.Minute))
	e2.Penalties = decimal.RequireFromString("2.5")

	got, _, err := ComputeRace(RaceInput{
		RaceID:       1,
		Participants: []Participant{{RiderID: 10, LastName: "Angelov", Category: models.CategoryExpert}},
		Entries:      []StageEntry{e1, e2},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].TotalPoints.Equal(pts(25)))
	assert.Equal(t, 22*time.Minute+32500*time.Millisecond, *got[0].TotalTime)
}

func TestComputeRace_TieBreaks(t *testing.T) {
	in := RaceInput{
		RaceID: 1,
		Participants: []Participant{
			{RiderID: 1, LastName: "Zhelev", Category: models.CategoryExpert},
			{RiderID: 2, LastName: "Atanasov", Category: models.CategoryExpert},
			{RiderID: 3, LastName: "Kolev", Category: models.CategoryExpert},
			{RiderID: 4, LastName: "Baev", Category: models.CategoryExpert},
			{RiderID: 5, LastName: "Baev", Category: models.CategoryExpert},
		},
		Entries: []StageEntry{
			entry(100, 1, 1, 20, dur(30*time.Minute)),
			entry(100, 1, 2, 20, dur(31*time.Minute)),
			entry(100, 1, 3, 20, nil),
			entry(100, 1, 4, 16, nil),
			entry(100, 1, 5, 16, nil),
		},
	}

	got, _, err := ComputeRace(in)
	require.NoError(t, err)

	order := make([]int64, len(got))
	for i, r := range got {
		order[i] = r.RiderID
		assert.Equal(t, i+1, r.OverallPosition)
	}
	// equal points: faster time first, untimed after timed; then surname, then id
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, order)
}

func TestComputeRace_RanksPerCategory(t *testing.T) {
	in := RaceInput{
		RaceID: 3,
		Participants: []Participant{
			{RiderID: 1, LastName: "A", Category: models.CategoryWomen},
			{RiderID: 2, LastName: "B", Category: models.CategoryExpert},
			{RiderID: 3, LastName: "C", Category: models.CategoryWomen},
			{RiderID: 4, LastName: "D", Category: models.CategoryExpert},
		},
		Entries: []StageEntry{
			entry(1, 3, 1, 11, nil),
			entry(1, 3, 2, 25, nil),
			entry(1, 3, 3, 13, nil),
			entry(1, 3, 4, 20, nil),
		},
	}

	got, _, err := ComputeRace(in)
	require.NoError(t, err)
	require.Len(t, got, 4)

	ranks := map[models.Category][]int{}
	for _, r := range got {
		ranks[r.Category] = append(ranks[r.Category], r.OverallPosition)
	}
	assert.Equal(t, []int{1, 2}, ranks[models.CategoryExpert])
	assert.Equal(t, []int{1, 2}, ranks[models.CategoryWomen])
	// expert is listed before women
	assert.Equal(t, models.CategoryExpert, got[0].Category)
	assert.Equal(t, int64(2), got[0].RiderID)
	assert.Equal(t, int64(3), got[2].RiderID)
}

func TestComputeRace_ReferentialAnomaliesAreWarnings(t *testing.T) {
	in := RaceInput{
		RaceID: 1,
		Participants: []Participant{
			{RiderID: 10, LastName: "Angelov", Category: models.CategoryExpert},
			{RiderID: 20, LastName: "Borisov", Category: models.CategoryExpert},
			{RiderID: 30, LastName: "Cankov", Category: models.Category("pro")},
		},
		Entries: []StageEntry{
			entry(100, 1, 10, 10, nil),
			entry(100, 1, 20, 10, nil),
			entry(900, 2, 20, 10, nil),
			entry(100, 1, 99, 25, nil),
			entry(100, 1, 30, 25, nil),
		},
	}

	got, warnings, err := ComputeRace(in)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(10), got[0].RiderID)

	require.Len(t, warnings, 3)
	reasons := map[int64]string{}
	for _, w := range warnings {
		reasons[w.RiderID] = w.Reason
	}
	assert.Equal(t, "stage belongs to a different race", reasons[20])
	assert.Equal(t, "rider has no confirmed participation", reasons[99])
	assert.Contains(t, reasons[30], "unknown category")
}

func TestComputeRace_Idempotent(t *testing.T) {
	in := RaceInput{
		RaceID: 1,
		Participants: []Participant{
			{RiderID: 1, LastName: "A", Category: models.CategoryStandard},
			{RiderID: 2, LastName: "B", Category: models.CategoryStandard},
			{RiderID: 3, LastName: "C", Category: models.CategorySeniors40},
		},
		Entries: []StageEntry{
			entry(1, 1, 1, 5, dur(time.Minute)),
			entry(1, 1, 2, 5, dur(time.Minute)),
			entry(1, 1, 3, 8, nil),
		},
	}

	first, _, err := ComputeRace(in)
	require.NoError(t, err)
	second, _, err := ComputeRace(in)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestVerifyRanks(t *testing.T) {
	ok := []models.RaceResult{
		{RiderID: 1, Category: models.CategoryExpert, OverallPosition: 1},
		{RiderID: 2, Category: models.CategoryExpert, OverallPosition: 2},
		{RiderID: 3, Category: models.CategoryWomen, OverallPosition: 1},
	}
	assert.NoError(t, verifyRanks(1, ok))

	dup := []models.RaceResult{
		{RiderID: 1, Category: models.CategoryExpert, OverallPosition: 1},
		{RiderID: 2, Category: models.CategoryExpert, OverallPosition: 1},
	}
	err := verifyRanks(1, dup)
	require.Error(t, err)
	assert.True(t, IsComputation(err))

	gap := []models.RaceResult{
		{RiderID: 1, Category: models.CategoryExpert, OverallPosition: 1},
		{RiderID: 2, Category: models.CategoryExpert, OverallPosition: 3},
	}
	assert.True(t, IsComputation(verifyRanks(1, gap)))
}
