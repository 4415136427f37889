package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/padraicbc/rallyapi/middleware"
	"github.com/padraicbc/rallyapi/models"
	"github.com/padraicbc/rallyapi/standings"
	"github.com/padraicbc/rallyapi/store"
)

var testKey = []byte("test-key")

type fixture struct {
	h       *Handler
	store   *fakeStore
	results *fakeStageResults
	recalc  *fakeRecalculator
}

func newFixture() *fixture {
	f := &fixture{
		store:   &fakeStore{users: map[string]*models.User{}},
		results: &fakeStageResults{},
		recalc:  &fakeRecalculator{},
	}
	f.h = New(testKey, f.store, f.results, f.recalc, func(u string) bool { return u == "root" }, nil)
	return f
}

func call(t *testing.T, method, target, body string, names, values []string, fn echo.HandlerFunc) (int, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	if err := fn(c); err != nil {
		var he *echo.HTTPError
		require.True(t, errors.As(err, &he), "unexpected error %v", err)
		return he.Code, rec
	}
	return rec.Code, rec
}

func TestSignin(t *testing.T) {
	f := newFixture()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	f.store.users["marta"] = &models.User{Username: "marta", Password: string(hash)}
	f.store.users["root"] = &models.User{Username: "root", Password: string(hash)}

	code, rec := call(t, http.MethodPost, "/api/signin", `{"username":" marta ","password":"secret"}`, nil, nil, f.h.Signin)
	require.Equal(t, http.StatusOK, code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claims := &mw.Claims{}
	_, err = jwt.ParseWithClaims(body["token"], claims, func(*jwt.Token) (interface{}, error) { return testKey, nil })
	require.NoError(t, err)
	assert.Equal(t, "marta", claims.Username)
	assert.False(t, claims.Admin)

	code, rec = call(t, http.MethodPost, "/api/signin", `{"username":"root","password":"secret"}`, nil, nil, f.h.Signin)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claims = &mw.Claims{}
	_, err = jwt.ParseWithClaims(body["token"], claims, func(*jwt.Token) (interface{}, error) { return testKey, nil })
	require.NoError(t, err)
	assert.True(t, claims.Admin)

	code, _ = call(t, http.MethodPost, "/api/signin", `{"username":"marta","password":"wrong"}`, nil, nil, f.h.Signin)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, http.MethodPost, "/api/signin", `{"username":"ghost","password":"x"}`, nil, nil, f.h.Signin)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPasswordHash(t *testing.T) {
	f := newFixture()

	code, rec := call(t, http.MethodPost, "/api/password-hash", `{"username":"jure","password":"pw"}`, nil, nil, f.h.PasswordHash)
	require.Equal(t, http.StatusOK, code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(body["password_hash"]), []byte("pw")))

	code, _ = call(t, http.MethodPost, "/api/password-hash", `{"username":"jure"}`, nil, nil, f.h.PasswordHash)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRaceResults(t *testing.T) {
	f := newFixture()
	total := 22*time.Minute + 500*time.Millisecond
	f.store.results = []store.RaceResultRow{
		{RaceID: 7, RiderID: 1, LastName: "Novak", Category: models.CategoryExpert, OverallPosition: 1, TotalTime: &total, TotalPoints: decimal.NewFromInt(25)},
		{RaceID: 7, RiderID: 2, LastName: "Horvat", Category: models.CategoryExpert, OverallPosition: 2, TotalPoints: decimal.NewFromInt(20)},
	}

	code, rec := call(t, http.MethodGet, "/api/races/7/results?category=Expert&rider=1", "", []string{"id"}, []string{"7"}, f.h.RaceResults)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, store.Filter{Category: models.CategoryExpert, RiderID: 1}, f.store.filters[0])

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "00:22:00.500", body[0]["totalTime"])
	assert.NotContains(t, body[1], "totalTime")
	assert.Equal(t, "25", body[0]["totalPoints"])
}

func TestRaceResults_BadInput(t *testing.T) {
	f := newFixture()

	code, _ := call(t, http.MethodGet, "/api/races/x/results", "", []string{"id"}, []string{"x"}, f.h.RaceResults)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, http.MethodGet, "/api/races/7/results?category=elite", "", []string{"id"}, []string{"7"}, f.h.RaceResults)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, http.MethodGet, "/api/races/7/results?rider=-2", "", []string{"id"}, []string{"7"}, f.h.RaceResults)
	assert.Equal(t, http.StatusBadRequest, code)

	f.store.err = fmt.Errorf("race 7: %w", store.ErrNotFound)
	code, _ = call(t, http.MethodGet, "/api/races/7/results", "", []string{"id"}, []string{"7"}, f.h.RaceResults)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStandingsExport(t *testing.T) {
	f := newFixture()
	f.store.standings = []store.StandingRow{
		{RiderID: 1, LastName: "Zupan", Category: models.CategoryJunior, TotalPoints: decimal.NewFromInt(40), BestPosition: 2},
		{RiderID: 2, LastName: "Novak", Category: models.CategoryExpert, TotalPoints: decimal.NewFromInt(40), BestPosition: 3},
		{RiderID: 3, LastName: "Horvat", Category: models.CategoryExpert, TotalPoints: decimal.NewFromInt(40), BestPosition: 1},
		{RiderID: 4, LastName: "Kos", Category: models.CategoryExpert, TotalPoints: decimal.NewFromInt(50), BestPosition: 4},
	}

	code, rec := call(t, http.MethodGet, "/", "", []string{"id"}, []string{"1"}, f.h.StandingsExport)
	require.Equal(t, http.StatusOK, code)

	var body []exportCategory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, models.CategoryExpert, body[0].Category)
	var order []int64
	for _, r := range body[0].Riders {
		order = append(order, r.RiderID)
	}
	assert.Equal(t, []int64{4, 3, 2}, order)
	assert.Equal(t, models.CategoryJunior, body[1].Category)
}

func TestPutStageResult(t *testing.T) {
	f := newFixture()

	body := `{"position":2,"time":"00:12:30","penalties":"2.5","notes":"jump start"}`
	code, _ := call(t, http.MethodPut, "/", body, []string{"stage", "rider"}, []string{"10", "5"}, f.h.PutStageResult)
	require.Equal(t, http.StatusOK, code)

	require.Len(t, f.results.upserts, 1)
	in := f.results.upserts[0]
	assert.Equal(t, int64(10), in.StageID)
	assert.Equal(t, int64(5), in.RiderID)
	require.NotNil(t, in.TimeTaken)
	assert.Equal(t, 12*time.Minute+30*time.Second, *in.TimeTaken)
	assert.Equal(t, "20", in.Points.String())
	assert.Equal(t, "2.5", in.Penalties.String())

	code, _ = call(t, http.MethodPut, "/", `{"position":1,"pointsEarned":12.5}`, []string{"stage", "rider"}, []string{"10", "6"}, f.h.PutStageResult)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "12.5", f.results.upserts[1].Points.String())
	assert.Nil(t, f.results.upserts[1].TimeTaken)
}

func TestPutStageResult_Errors(t *testing.T) {
	f := newFixture()

	code, _ := call(t, http.MethodPut, "/", `{"time":"soon"}`, []string{"stage", "rider"}, []string{"10", "5"}, f.h.PutStageResult)
	assert.Equal(t, http.StatusBadRequest, code)

	f.results.err = &standings.ValidationError{Field: "position", Reason: "must not be negative"}
	code, _ = call(t, http.MethodPut, "/", `{"position":-1}`, []string{"stage", "rider"}, []string{"10", "5"}, f.h.PutStageResult)
	assert.Equal(t, http.StatusBadRequest, code)

	f.results.err = fmt.Errorf("cascade: %w", &standings.ComputationError{Scope: "race", ID: 7, Reason: "rank gap"})
	code, _ = call(t, http.MethodPut, "/", `{"position":1}`, []string{"stage", "rider"}, []string{"10", "5"}, f.h.PutStageResult)
	assert.Equal(t, http.StatusInternalServerError, code)

	f.results.err = fmt.Errorf("stage 10: %w", store.ErrNotFound)
	code, _ = call(t, http.MethodPut, "/", `{"position":1}`, []string{"stage", "rider"}, []string{"10", "5"}, f.h.PutStageResult)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteStageResult(t *testing.T) {
	f := newFixture()

	code, _ := call(t, http.MethodDelete, "/", "", []string{"stage", "rider"}, []string{"10", "5"}, f.h.DeleteStageResult)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, [][2]int64{{10, 5}}, f.results.deletes)
}

func TestBatchStageResults(t *testing.T) {
	f := newFixture()

	body := `{"entries":[{"stageID":10,"riderID":1,"position":1,"time":"10:00"},{"stageID":10,"riderID":2,"position":2,"dnf":true}]}`
	code, rec := call(t, http.MethodPost, "/api/stage-results/batch?dryRun=true", body, nil, nil, f.h.BatchStageResults)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, f.results.batches, 1)
	assert.Len(t, f.results.batches[0], 2)
	assert.True(t, f.results.batches[0][1].DNF)
	assert.True(t, f.results.dryRun)
	assert.Contains(t, rec.Body.String(), `"dryRun":true`)
}

func TestRecalculate(t *testing.T) {
	f := newFixture()

	code, _ := call(t, http.MethodPost, "/", `{"scope":"championship","id":3}`, nil, nil, f.h.Recalculate)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(3), f.recalc.id)

	code, _ = call(t, http.MethodPost, "/", `{"all":true,"completedOnly":true}`, nil, nil, f.h.Recalculate)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, f.recalc.all)

	code, _ = call(t, http.MethodPost, "/", `{"scope":"season","id":3}`, nil, nil, f.h.Recalculate)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = call(t, http.MethodPost, "/", `{"scope":"race"}`, nil, nil, f.h.Recalculate)
	assert.Equal(t, http.StatusBadRequest, code)
}
